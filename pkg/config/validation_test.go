package config

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		fieldName string
		wantError bool
		errMsg    string
	}{
		{
			name:      "valid https url",
			url:       "https://api.pwnedpasswords.com",
			fieldName: "breach API URL",
			wantError: false,
		},
		{
			name:      "valid http url",
			url:       "http://localhost:8080",
			fieldName: "Server URL",
			wantError: false,
		},
		{
			name:      "empty url",
			url:       "",
			fieldName: "API URL",
			wantError: true,
			errMsg:    "cannot be empty",
		},
		{
			name:      "no scheme",
			url:       "api.pwnedpasswords.com",
			fieldName: "breach API URL",
			wantError: true,
			errMsg:    "must include a scheme",
		},
		{
			name:      "invalid url",
			url:       "ht!tp://invalid",
			fieldName: "URL",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, tt.fieldName)
			if tt.wantError {
				if err == nil {
					t.Errorf("ValidateURL() expected error but got none")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateURL() error = %v, want error containing %v", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateURL() unexpected error = %v", err)
				}
			}
		})
	}
}

func TestParseMaxEntrySize(t *testing.T) {
	tests := []struct {
		name      string
		sizeStr   string
		want      int64
		wantError bool
	}{
		{
			name:    "kilobytes",
			sizeStr: "4KB",
			want:    4 * 1000, // FromHumanSize uses decimal (1000) not binary (1024)
		},
		{
			name:    "megabytes",
			sizeStr: "1MB",
			want:    1 * 1000 * 1000,
		},
		{
			name:    "plain bytes",
			sizeStr: "512",
			want:    512,
		},
		{
			name:      "invalid format",
			sizeStr:   "invalid",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMaxEntrySize(tt.sizeStr)
			if tt.wantError {
				if err == nil {
					t.Errorf("ParseMaxEntrySize() expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("ParseMaxEntrySize() unexpected error = %v", err)
				}
				if got != tt.want {
					t.Errorf("ParseMaxEntrySize() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestValidateThreadCount(t *testing.T) {
	if err := ValidateThreadCount(0); err == nil {
		t.Error("ValidateThreadCount(0) expected error but got none")
	}
	if err := ValidateThreadCount(101); err == nil {
		t.Error("ValidateThreadCount(101) expected error but got none")
	}
	if err := ValidateThreadCount(4); err != nil {
		t.Errorf("ValidateThreadCount(4) unexpected error = %v", err)
	}
}

func TestCheckOptionsValidate(t *testing.T) {
	opts := DefaultCheckOptions()
	if err := opts.Validate(); err != nil {
		t.Errorf("default options should validate, got %v", err)
	}

	opts.BreachBaseURL = "no-scheme"
	if err := opts.Validate(); err == nil {
		t.Error("bad breach URL should fail validation")
	}

	opts.Offline = true
	if err := opts.Validate(); err != nil {
		t.Errorf("offline mode must not require a breach URL, got %v", err)
	}

	opts.MaxEntrySize = 0
	if err := opts.Validate(); err == nil {
		t.Error("zero max entry size should fail validation")
	}
}
