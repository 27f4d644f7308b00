package types

import "testing"

func TestResourceValidate(t *testing.T) {
	tests := []struct {
		name     string
		resource Resource
		wantErr  bool
	}{
		{
			name:     "valid",
			resource: Resource{ID: "i-0123", Type: "ec2", Region: "us-east-1"},
		},
		{
			name:     "missing id",
			resource: Resource{Type: "ec2", Region: "us-east-1"},
			wantErr:  true,
		},
		{
			name:     "missing type",
			resource: Resource{ID: "i-0123", Region: "us-east-1"},
			wantErr:  true,
		},
		{
			name:     "missing region",
			resource: Resource{ID: "i-0123", Type: "ec2"},
			wantErr:  true,
		},
		{
			name:     "whitespace id",
			resource: Resource{ID: "   ", Type: "ec2", Region: "us-east-1"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.resource.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOwnershipVerdictConflicted(t *testing.T) {
	clean := OwnershipVerdict{Managed: true, Primary: &OwnershipMatch{Address: "aws_instance.web"}}
	if clean.Conflicted() {
		t.Error("single owner reported as conflicted")
	}

	conflicted := OwnershipVerdict{
		Managed:   true,
		Primary:   &OwnershipMatch{Address: "aws_instance.web"},
		Conflicts: []OwnershipMatch{{Address: "aws_instance.web_old"}},
	}
	if !conflicted.Conflicted() {
		t.Error("competing claim not reported as conflicted")
	}

	unmanaged := OwnershipVerdict{}
	if unmanaged.Conflicted() {
		t.Error("unmanaged verdict reported as conflicted")
	}
}
