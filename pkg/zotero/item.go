package zotero

import (
	"encoding/json"
	"strings"
)

// Item types skipped when importing a collection.
const (
	ItemTypeNote       = "note"
	ItemTypeAttachment = "attachment"
)

type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Names returns the first and last name. A single-field name is split at
// its first space.
func (c Creator) Names() (string, string) {
	if c.Name == "" {
		return c.FirstName, c.LastName
	}
	first, last, ok := strings.Cut(c.Name, " ")
	if !ok {
		return "", c.Name
	}
	return first, last
}

type Tag struct {
	Tag string `json:"tag"`
}

// ItemData holds the fields of an item's data object that locus reads.
type ItemData struct {
	Key          string    `json:"key"`
	ItemType     string    `json:"itemType"`
	Title        string    `json:"title"`
	AbstractNote string    `json:"abstractNote"`
	Creators     []Creator `json:"creators"`
	Tags         []Tag     `json:"tags"`
	ContentType  string    `json:"contentType"`
	Filename     string    `json:"filename"`
	ParentItem   string    `json:"parentItem"`
}

// Item is one entry of the web API. RawData keeps the full data object.
type Item struct {
	Key     string
	Version int
	Links   json.RawMessage
	Data    ItemData
	RawData json.RawMessage
}

func (i *Item) UnmarshalJSON(b []byte) error {
	var aux struct {
		Key     string          `json:"key"`
		Version int             `json:"version"`
		Links   json.RawMessage `json:"links"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*i = Item{Key: aux.Key, Version: aux.Version, Links: aux.Links, RawData: aux.Data}
	if len(aux.Data) > 0 {
		if err := json.Unmarshal(aux.Data, &i.Data); err != nil {
			return err
		}
	}
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key     string          `json:"key"`
		Version int             `json:"version"`
		Links   json.RawMessage `json:"links,omitempty"`
		Data    json.RawMessage `json:"data,omitempty"`
	}{i.Key, i.Version, i.Links, i.RawData})
}

// TagList joins the tag names with commas.
func (d ItemData) TagList() string {
	names := make([]string, len(d.Tags))
	for i, t := range d.Tags {
		names[i] = t.Tag
	}
	return strings.Join(names, ",")
}

// Metadata is the data object with the item's links added under "links".
func (i Item) Metadata() (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(i.RawData) > 0 {
		if err := json.Unmarshal(i.RawData, &fields); err != nil {
			return nil, err
		}
	}
	if len(i.Links) > 0 {
		fields["links"] = i.Links
	}
	return json.Marshal(fields)
}
