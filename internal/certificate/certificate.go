// Package certificate models guard certificates and decides whether one is
// currently valid, close to expiry or expired.
//
// Nothing in this package reads the wall clock: every decision takes the
// reference time as an argument.
package certificate

import (
	"fmt"
	"strings"
	"time"
)

// Category is one of the Dutch security/safety certification schemes.
type Category string

const (
	CategoryWPBR Category = "WPBR" // private security (Wet particuliere beveiligingsorganisaties)
	CategoryVCA  Category = "VCA"  // contractor safety checklist
	CategoryBHV  Category = "BHV"  // company emergency response
	CategoryEHBO Category = "EHBO" // first aid
)

// ParseCategory converts a raw string to a Category. Matching ignores case
// and surrounding whitespace; unknown schemes are rejected.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryWPBR, CategoryVCA, CategoryBHV, CategoryEHBO:
		return c, nil
	}
	return "", fmt.Errorf("unknown certificate category %q", s)
}

// Certificate is a registered certificate held by a guard.
type Certificate struct {
	ID               string    `json:"id"`
	Category         Category  `json:"category"`
	HolderID         string    `json:"holderId"`
	IssuingAuthority string    `json:"issuingAuthority"`
	IssueDate        time.Time `json:"issueDate"`
	ExpirationDate   time.Time `json:"expirationDate"`
	Authorizations   []string  `json:"authorizations"`
}

// NewCertificate builds a Certificate, rejecting an expiration date that is
// not strictly after the issue date.
func NewCertificate(id string, category Category, holderID, authority string, issued, expires time.Time, authorizations ...string) (Certificate, error) {
	if !issued.Before(expires) {
		return Certificate{}, &InvalidRangeError{CertificateID: id, IssueDate: issued, ExpirationDate: expires}
	}
	return Certificate{
		ID:               id,
		Category:         category,
		HolderID:         holderID,
		IssuingAuthority: authority,
		IssueDate:        issued,
		ExpirationDate:   expires,
		Authorizations:   authorizations,
	}, nil
}

// InvalidRangeError reports certificate data whose issue date is not before
// its expiration date. It is an upstream data defect and is never corrected.
type InvalidRangeError struct {
	CertificateID  string
	IssueDate      time.Time
	ExpirationDate time.Time
}

func (e *InvalidRangeError) Error() string {
	if e.CertificateID == "" {
		return fmt.Sprintf("invalid certificate range: issued %s is not before expiration %s",
			e.IssueDate.Format(time.RFC3339), e.ExpirationDate.Format(time.RFC3339))
	}
	return fmt.Sprintf("invalid certificate range for %s: issued %s is not before expiration %s",
		e.CertificateID, e.IssueDate.Format(time.RFC3339), e.ExpirationDate.Format(time.RFC3339))
}
