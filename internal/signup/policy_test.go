package signup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	require.Equal(t, []string{"gov", "us", "state", "city", "county", "municipal"}, p.EmailSuffixes)
	require.Equal(t, 12, p.MinPasswordLength)

	// callers get their own copy
	p.EmailSuffixes[0] = "com"
	require.Equal(t, "gov", DefaultPolicy().EmailSuffixes[0])
}

func TestPolicyAllowsDomain(t *testing.T) {
	p := DefaultPolicy()

	require.True(t, p.AllowsDomain("springfield.gov"))
	require.True(t, p.AllowsDomain("dmv.ca.US"))
	require.False(t, p.AllowsDomain("gov.example.com"))
	require.False(t, p.AllowsDomain("gmail.com"))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Policy
		wantErr string
	}{
		{
			name: "empty file keeps defaults",
			yaml: "",
			want: DefaultPolicy(),
		},
		{
			name: "override suffixes",
			yaml: "email_suffixes: [gov, mil]\n",
			want: Policy{EmailSuffixes: []string{"gov", "mil"}, MinPasswordLength: 12},
		},
		{
			name: "override length",
			yaml: "min_password_length: 16\n",
			want: Policy{EmailSuffixes: DefaultPolicy().EmailSuffixes, MinPasswordLength: 16},
		},
		{
			name:    "empty suffix list",
			yaml:    "email_suffixes: []\n",
			wantErr: "invalid policy: at least one email suffix is required",
		},
		{
			name:    "dotted suffix",
			yaml:    "email_suffixes: [gov.uk]\n",
			wantErr: `invalid policy: invalid email suffix "gov.uk"`,
		},
		{
			name:    "zero length",
			yaml:    "min_password_length: 0\n",
			wantErr: "invalid policy: min password length must be greater than 0",
		},
		{
			name:    "unknown key",
			yaml:    "max_password_length: 64\n",
			wantErr: "failed to parse policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email_suffixes:\n  - gov\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, []string{"gov"}, p.EmailSuffixes)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read policy file")
}

func TestPolicyFileServerSchemaFollowsPolicy(t *testing.T) {
	p := Policy{EmailSuffixes: []string{"mil"}, MinPasswordLength: 20}

	in := validInput()
	_, err := Validate(ServerSchema(p), in)
	require.EqualError(t, err, "Must use a valid government email")

	in.Email = "ops@army.mil"
	_, err = Validate(ServerSchema(p), in)
	require.EqualError(t, err, "Password must be at least 20 characters")
}
