package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CompoundAmounts is an insertion-ordered mapping from compound name to
// accumulated milligrams. The zero value is ready to use.
type CompoundAmounts struct {
	keys []string
	mg   map[string]float64
}

// Add accumulates mg under name, appending name on first sight.
func (c *CompoundAmounts) Add(name string, mg float64) {
	if c.mg == nil {
		c.mg = make(map[string]float64)
	}
	if _, ok := c.mg[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.mg[name] += mg
}

// Get returns the amount stored under name.
func (c *CompoundAmounts) Get(name string) (float64, bool) {
	v, ok := c.mg[name]
	return v, ok
}

// Keys returns the compound names in insertion order.
func (c *CompoundAmounts) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of distinct compounds.
func (c *CompoundAmounts) Len() int { return len(c.keys) }

// MarshalJSON encodes the mapping as a JSON object whose members follow
// insertion order.
func (c CompoundAmounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.mg[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving member order.
func (c *CompoundAmounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = CompoundAmounts{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("domain: compound amounts: expected object, got %v", tok)
	}
	out := CompoundAmounts{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("domain: compound amounts: expected string key, got %v", kt)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("domain: compound amounts: %s: %w", key, err)
		}
		out.Add(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// Compound routing names used by the breakdown.
const (
	CompoundCaffeine  = "caffeine"
	CompoundLTheanine = "l-theanine"
)

// catechinNames are the compounds folded into the catechins total.
var catechinNames = []string{"egcg", "ecg", "egc", "catechin"}

// CompoundBreakdown is the per-cup compound summary of a tea, recommendation
// or blend.
type CompoundBreakdown struct {
	CaffeineMg  float64         `json:"caffeine_mg"`
	LTheanineMg float64         `json:"l_theanine_mg"`
	CatechinsMg float64         `json:"catechins_mg"`
	Other       CompoundAmounts `json:"other"`
}

// Route adds mg of the named compound to the matching bucket. Caffeine,
// l-theanine and the catechin family have dedicated totals; every other
// compound accumulates in Other under "<name>_mg".
func (b *CompoundBreakdown) Route(name string, mg float64) {
	switch key := normaliseCompound(name); {
	case key == CompoundCaffeine:
		b.CaffeineMg += mg
	case key == CompoundLTheanine:
		b.LTheanineMg += mg
	case isCatechin(key):
		b.CatechinsMg += mg
	default:
		b.Other.Add(name+"_mg", mg)
	}
}

// BreakdownOf returns the unweighted compound breakdown of a single tea.
func BreakdownOf(t TeaDetail) CompoundBreakdown {
	var b CompoundBreakdown
	for _, c := range t.Compounds {
		b.Route(c.Name, c.AmountMg)
	}
	return b
}

func normaliseCompound(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "l_theanine" || key == "ltheanine" || key == "theanine" {
		return CompoundLTheanine
	}
	return key
}

func isCatechin(key string) bool {
	for _, n := range catechinNames {
		if key == n {
			return true
		}
	}
	return false
}
