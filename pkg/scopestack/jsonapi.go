package scopestack

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// MediaType is the JSON:API content type used for every request.
const MediaType = "application/vnd.api+json"

// Identifier is a JSON:API resource identifier object.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Resource is a JSON:API resource object. Attributes and relationships are
// kept raw and decoded per resource type.
type Resource struct {
	ID            string                     `json:"id,omitempty"`
	Type          string                     `json:"type"`
	Attributes    json.RawMessage            `json:"attributes,omitempty"`
	Relationships map[string]json.RawMessage `json:"relationships,omitempty"`
}

// Document is a JSON:API top-level document.
type Document struct {
	Data     json.RawMessage            `json:"data"`
	Included []Resource                 `json:"included,omitempty"`
	Links    map[string]json.RawMessage `json:"links,omitempty"`
}

// newResource builds a request resource with to-one relationships.
func newResource(typ string, attrs any, rels map[string]Identifier) (Resource, error) {
	r := Resource{Type: typ}
	if attrs != nil {
		raw, err := json.Marshal(attrs)
		if err != nil {
			return r, eris.Wrapf(err, "marshal %s attributes", typ)
		}
		r.Attributes = raw
	}
	if len(rels) > 0 {
		r.Relationships = make(map[string]json.RawMessage, len(rels))
		for name, id := range rels {
			raw, err := json.Marshal(struct {
				Data Identifier `json:"data"`
			}{Data: id})
			if err != nil {
				return r, eris.Wrapf(err, "marshal %s relationship %s", typ, name)
			}
			r.Relationships[name] = raw
		}
	}
	return r, nil
}

// HasNext reports whether the document links to a further page.
func (d *Document) HasNext() bool {
	raw := bytes.TrimSpace(d.Links["next"])
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte(`""`))
}

// Empty reports whether the document carries no primary data.
func (d *Document) Empty() bool {
	trimmed := bytes.TrimSpace(d.Data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// One decodes the primary data as a single resource.
func (d *Document) One() (Resource, error) {
	var r Resource
	if len(d.Data) == 0 || bytes.Equal(d.Data, []byte("null")) {
		return r, eris.New("document has no primary data")
	}
	if err := json.Unmarshal(d.Data, &r); err != nil {
		return r, eris.Wrap(err, "decode primary resource")
	}
	return r, nil
}

// Many decodes the primary data as a resource collection. A single resource
// is returned as a one-element slice.
func (d *Document) Many() ([]Resource, error) {
	trimmed := bytes.TrimSpace(d.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		r, err := d.One()
		if err != nil {
			return nil, err
		}
		return []Resource{r}, nil
	}
	var rs []Resource
	if err := json.Unmarshal(trimmed, &rs); err != nil {
		return nil, eris.Wrap(err, "decode resource collection")
	}
	return rs, nil
}

// includedIndex maps "type/id" to included resources.
func (d *Document) includedIndex() map[string]Resource {
	idx := make(map[string]Resource, len(d.Included))
	for _, r := range d.Included {
		idx[r.Type+"/"+r.ID] = r
	}
	return idx
}

// Decode unmarshals the resource attributes into out.
func (r Resource) Decode(out any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Attributes, out); err != nil {
		return eris.Wrapf(err, "decode %s %s attributes", r.Type, r.ID)
	}
	return nil
}

// Related returns the identifiers linked under the named relationship. Both
// to-one and to-many linkage is accepted; missing relationships yield nil.
func (r Resource) Related(name string) []Identifier {
	raw, ok := r.Relationships[name]
	if !ok {
		return nil
	}
	var rel struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &rel); err != nil {
		return nil
	}
	data := bytes.TrimSpace(rel.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var id Identifier
		if err := json.Unmarshal(data, &id); err != nil {
			return nil
		}
		return []Identifier{id}
	}
	var ids []Identifier
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil
	}
	return ids
}

// decimal decodes numeric attributes sent either as JSON numbers or strings.
type decimal struct {
	v  float64
	ok bool
}

func (d *decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "parse decimal %q", s)
	}
	d.v, d.ok = f, true
	return nil
}

// Ptr returns nil when the attribute was absent or null.
func (d decimal) Ptr() *float64 {
	if !d.ok {
		return nil
	}
	v := d.v
	return &v
}

// Float returns the value or zero.
func (d decimal) Float() float64 {
	return d.v
}

// flexString decodes ids the API sends either as strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return eris.Wrap(err, "decode string")
		}
		*f = flexString(str)
		return nil
	}
	*f = flexString(s)
	return nil
}
