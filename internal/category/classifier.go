// Package category assigns spending category codes to transaction
// descriptions using an ordered keyword table.
package category

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Classifier holds an immutable copy of a rule table. It is safe for
// concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over rules in the given order.
// Keywords are compared upper-cased.
func NewClassifier(rules []Rule) *Classifier {
	rs := cloneRules(rules)
	for i := range rs {
		for j, k := range rs[i].Keywords {
			rs[i].Keywords[j] = strings.ToUpper(k)
		}
	}
	return &Classifier{rules: rs}
}

// NewDefaultClassifier builds a classifier over the built-in table.
func NewDefaultClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// Classify returns the code of the first category, in table order, that has a
// keyword contained in the upper-cased description, or Other.
func (c *Classifier) Classify(description string) string {
	desc := strings.ToUpper(description)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(desc, k) {
				return r.Code
			}
		}
	}
	return Other
}

// Rules returns a copy of the table in precedence order.
func (c *Classifier) Rules() []Rule {
	return cloneRules(c.rules)
}

// DisplayName turns a code such as FOOD_DELIVERY into "Food Delivery".
func DisplayName(code string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(code, "_", " "))
}
