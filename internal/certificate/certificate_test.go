package certificate_test

import (
	"errors"
	"testing"
	"time"

	"securyflex/verification-service/internal/certificate"
)

func TestParseCategory_ValidValues(t *testing.T) {
	cases := map[string]certificate.Category{
		"WPBR":   certificate.CategoryWPBR,
		"vca":    certificate.CategoryVCA,
		" Bhv ":  certificate.CategoryBHV,
		"EHBO\n": certificate.CategoryEHBO,
	}
	for in, want := range cases {
		got, err := certificate.ParseCategory(in)
		if err != nil {
			t.Errorf("ParseCategory(%q) returned unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCategory_InvalidValues(t *testing.T) {
	for _, in := range []string{"", "SVPB", "WPBR-1", "first aid"} {
		if _, err := certificate.ParseCategory(in); err == nil {
			t.Errorf("ParseCategory(%q) expected error, got nil", in)
		}
	}
}

func TestNewCertificate(t *testing.T) {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expires := issued.AddDate(5, 0, 0)

	cert, err := certificate.NewCertificate("WPBR-1", certificate.CategoryWPBR, "guard-1", "Justis", issued, expires, "beveiliger", "evenementen")
	if err != nil {
		t.Fatalf("NewCertificate returned unexpected error: %v", err)
	}
	if cert.ID != "WPBR-1" || cert.HolderID != "guard-1" || cert.IssuingAuthority != "Justis" {
		t.Errorf("NewCertificate populated wrong identity fields: %+v", cert)
	}
	if len(cert.Authorizations) != 2 {
		t.Errorf("Authorizations = %v, want 2 entries", cert.Authorizations)
	}
}

func TestNewCertificate_RejectsInvertedRange(t *testing.T) {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, expires := range []time.Time{issued, issued.Add(-time.Second)} {
		_, err := certificate.NewCertificate("c", certificate.CategoryBHV, "g", "NIBHV", issued, expires)
		var re *certificate.InvalidRangeError
		if !errors.As(err, &re) {
			t.Fatalf("NewCertificate(expires=%s) error = %v, want *InvalidRangeError", expires, err)
		}
		if re.CertificateID != "c" {
			t.Errorf("InvalidRangeError.CertificateID = %q, want %q", re.CertificateID, "c")
		}
	}
}
