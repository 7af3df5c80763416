package model

// Collection is a published tile collection as listed by the host.
type Collection struct {
	CollectionID float64 `json:"collectionid" yaml:"collectionid"`
	Description  string  `json:"description" yaml:"description"`
	Extent       string  `json:"extent" yaml:"extent"`
	Title        string  `json:"title" yaml:"title"`
}
