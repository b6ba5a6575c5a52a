package models

import (
	"strings"
	"unicode"
)

// Category groups attribute names for display.
type Category string

const (
	CategoryIdentity     Category = "identity"
	CategoryContact      Category = "contact"
	CategoryAddress      Category = "address"
	CategoryFinancial    Category = "financial"
	CategoryOrganization Category = "organization"
	CategoryOther        Category = "other"
)

// Checked in order; the first category with a matching keyword wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryFinancial, []string{"income", "salary", "bank", "account", "tax", "pannumber", "pancard", "ifsc", "credit", "gst"}},
	{CategoryAddress, []string{"address", "street", "city", "state", "country", "zip", "postal", "pincode"}},
	{CategoryContact, []string{"phone", "mobile", "email", "contact", "website"}},
	{CategoryOrganization, []string{"registration", "incorporation", "company", "organization", "organisation", "director", "industry", "department", "ministry", "jurisdiction", "service"}},
	{CategoryIdentity, []string{"name", "dob", "birth", "gender", "aadhaar", "passport", "idnumber", "nationality", "photo"}},
}

// Classify maps an attribute name to its display category. It is case and
// separator insensitive: "Date_of_Birth", "dateOfBirth" and "date of birth"
// classify the same.
func Classify(name string) Category {
	normalized := normalizeName(name)
	if normalized == "" {
		return CategoryOther
	}
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(normalized, kw) {
				return group.category
			}
		}
	}
	return CategoryOther
}

// GroupByCategory buckets attributes by Classify.
func GroupByCategory(attrs Attributes) map[Category]Attributes {
	out := make(map[Category]Attributes)
	for name, v := range attrs {
		c := Classify(name)
		if out[c] == nil {
			out[c] = Attributes{}
		}
		out[c][name] = v
	}
	return out
}

func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
