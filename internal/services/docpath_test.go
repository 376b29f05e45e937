package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/trustweave/portal/internal/models"
)

func TestRecoverSubmitterInfoPrefersStructuredColumn(t *testing.T) {
	record := &models.VerificationRecord{
		SubmitterInfo: datatypes.JSON(`{"fullName":"Jane Doe","nationality":"Portuguese"}`),
		DocumentPath:  `{"personalInfo":{"fullName":"Old Name"}}`,
	}

	info := RecoverSubmitterInfo(record)
	require.Equal(t, "Jane Doe", info.FullName)
	require.Equal(t, "Portuguese", info.Nationality)
}

func TestRecoverSubmitterInfoFromJSONBlob(t *testing.T) {
	record := &models.VerificationRecord{
		DocumentPath: `{"personalInfo":{"fullName":"John Smith","dateOfBirth":"1985-01-01","nationality":"Irish","address":"1 Main St"},"idCardPath":"u/id.png","selfiePath":"u/selfie.jpg"}`,
	}

	info := RecoverSubmitterInfo(record)
	require.Equal(t, "John Smith", info.FullName)
	require.Equal(t, "Irish", info.Nationality)
	require.Equal(t, "1 Main St", info.Address)
	require.Equal(t, "u/id.png", info.IDCardPath)
	require.Equal(t, "u/selfie.jpg", info.SelfiePath)
}

func TestRecoverSubmitterInfoFromBareEmail(t *testing.T) {
	// The oldest rows stored nothing but the submitter email in the column.
	record := &models.VerificationRecord{DocumentPath: "plain@email.com"}

	info := RecoverSubmitterInfo(record)
	require.Equal(t, "plain@email.com", info.Email)
	require.Equal(t, "plain@email.com", info.FullName)
}

func TestRecoverSubmitterInfoFromDoubleEncodedBlob(t *testing.T) {
	record := &models.VerificationRecord{
		DocumentPath: `"{\"personalInfo\":{\"fullName\":\"Nested Writer\"}}"`,
	}

	info := RecoverSubmitterInfo(record)
	require.Equal(t, "Nested Writer", info.FullName)
}

func TestRecoverSubmitterInfoNeverFails(t *testing.T) {
	// Every historical shape must degrade to a usable value, never panic.
	cases := []*models.VerificationRecord{
		nil,
		{},
		{DocumentPath: "some/random/path.png"},
		{DocumentPath: "{not json at all"},
		{DocumentPath: `{"personalInfo":null}`},
		{DocumentPath: `{"personalInfo":{"fullName":"   "}}`},
		{DocumentPath: `[1,2,3]`},
		{SubmitterInfo: datatypes.JSON(`{broken`)},
	}

	for i, record := range cases {
		info := RecoverSubmitterInfo(record)
		require.Equal(t, "Unknown", info.FullName, "case %d", i)
	}
}
