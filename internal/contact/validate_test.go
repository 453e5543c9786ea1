package contact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		record      map[string]string
		wantRow     *ContactRow
		wantErrSubs []string
	}{
		{
			name: "valid full record",
			record: map[string]string{
				"name":   "Alice Johnson",
				"phone":  "+14155551234",
				"email":  "alice@example.com",
				"source": "web",
			},
			wantRow: &ContactRow{
				Name:   "Alice Johnson",
				Phone:  "+14155551234",
				Email:  "alice@example.com",
				Source: "web",
			},
		},
		{
			name: "valid without optional fields",
			record: map[string]string{
				"name":  "Bob Smith",
				"phone": "14155551234",
			},
			wantRow: &ContactRow{
				Name:  "Bob Smith",
				Phone: "14155551234",
			},
		},
		{
			name: "empty optional fields treated as absent",
			record: map[string]string{
				"name":   "Carol White",
				"phone":  "+442071838750",
				"email":  "",
				"source": "",
			},
			wantRow: &ContactRow{
				Name:  "Carol White",
				Phone: "+442071838750",
			},
		},
		{
			name: "unknown fields dropped silently",
			record: map[string]string{
				"name":    "Dave Green",
				"phone":   "+14155551234",
				"company": "Acme",
				"notes":   "whatever",
			},
			wantRow: &ContactRow{
				Name:  "Dave Green",
				Phone: "+14155551234",
			},
		},
		{
			name: "name and phone trimmed before validation",
			record: map[string]string{
				"name":  "  Eve Black  ",
				"phone": " +14155551234 ",
			},
			wantRow: &ContactRow{
				Name:  "Eve Black",
				Phone: "+14155551234",
			},
		},
		{
			name: "missing name",
			record: map[string]string{
				"phone": "+14155551234",
			},
			wantErrSubs: []string{"name is required"},
		},
		{
			name: "name too short",
			record: map[string]string{
				"name":  "B",
				"phone": "+14155551234",
			},
			wantErrSubs: []string{"name must be between 2 and 255 characters"},
		},
		{
			name: "name too long",
			record: map[string]string{
				"name":  strings.Repeat("x", 256),
				"phone": "+14155551234",
			},
			wantErrSubs: []string{"name must be between 2 and 255 characters"},
		},
		{
			name: "missing phone",
			record: map[string]string{
				"name": "Frank Gray",
			},
			wantErrSubs: []string{"phone is required"},
		},
		{
			name: "phone too short",
			record: map[string]string{
				"name":  "Frank Gray",
				"phone": "5",
			},
			wantErrSubs: []string{"phone must be a valid E.164 number"},
		},
		{
			name: "phone with double plus",
			record: map[string]string{
				"name":  "Frank Gray",
				"phone": "++1",
			},
			wantErrSubs: []string{"phone must be a valid E.164 number"},
		},
		{
			name: "phone starting with zero",
			record: map[string]string{
				"name":  "Frank Gray",
				"phone": "0155551234",
			},
			wantErrSubs: []string{"phone must be a valid E.164 number"},
		},
		{
			name: "invalid email",
			record: map[string]string{
				"name":  "Grace Hall",
				"phone": "+14155551234",
				"email": "not-an-email",
			},
			wantErrSubs: []string{"email must be a valid email address"},
		},
		{
			name: "source too long",
			record: map[string]string{
				"name":   "Henry Ives",
				"phone":  "+14155551234",
				"source": strings.Repeat("s", 101),
			},
			wantErrSubs: []string{"source must be at most 100 characters"},
		},
		{
			name: "multiple violations joined into one message",
			record: map[string]string{
				"name":  "B",
				"phone": "0155",
			},
			wantErrSubs: []string{
				"name must be between 2 and 255 characters",
				"phone must be a valid E.164 number",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, verr := Validate(7, tt.record)

			if tt.wantRow != nil {
				require.Nil(t, verr)
				assert.Equal(t, *tt.wantRow, row)
				return
			}

			require.NotNil(t, verr)
			assert.Equal(t, 7, verr.RowNumber)
			assert.Equal(t, tt.record, verr.RawRecord)
			for _, sub := range tt.wantErrSubs {
				assert.Contains(t, verr.ErrorMessage, sub)
			}
		})
	}
}

func TestValidatePhonePattern(t *testing.T) {
	valid := []string{"+14155551234", "14155551234", "+442071838750", "+12", "999999999999999"}
	invalid := []string{"", "5", "++1", "+0123", "phone", "+1415555123456789", "1415-555-1234"}

	for _, p := range valid {
		assert.True(t, phonePattern.MatchString(p), "expected %q to be valid", p)
	}
	for _, p := range invalid {
		assert.False(t, phonePattern.MatchString(p), "expected %q to be invalid", p)
	}
}
