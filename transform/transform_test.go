package transform

import "testing"

func TestExtractAssetID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"The tunnel washer 1 is leaking again", "tunnel-001"},
		{"TW2 stopped mid cycle", "tunnel-002"},
		{"clm dryer 12 making noise", "dryer-012"},
		{"incline dryer 22 belt slipping", "dryer-022"},
		{"ironer number 4 needs new pads", "ironer-004"},
		{"restock the chemical shelf", ""},
	}
	for _, tc := range tests {
		if got := ExtractAssetID(tc.text); got != tc.want {
			t.Errorf("ExtractAssetID(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestClassifyWorkType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"production stopped, tunnel is down", "emergency-001"},
		{"please handle this asap", "urgent-002"},
		{"scheduled preventive maintenance", "routine-003"},
		{"fix it whenever you get a chance", "low-004"},
		{"hello there", ""},
		// Emergency indicators take precedence over urgency ones.
		{"urgent: machine is broken", "emergency-001"},
	}
	for _, tc := range tests {
		if got := ClassifyWorkType(tc.text); got != tc.want {
			t.Errorf("ClassifyWorkType(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestClassifyCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"please put in a work request for the dryer", CategoryWorkRequest},
		{"generate a work order for tunnel 1", CategoryWorkOrder},
		{"inspect the steam valves", CategoryInspectionTask},
		{"call the vendor about parts", CategoryGeneralTask},
		// No explicit mention: urgency decides.
		{"the ironer is broken and leaking", CategoryWorkOrder},
		{"replace the filter sometime next month", CategoryWorkRequest},
	}
	for _, tc := range tests {
		if got := ClassifyCategory(tc.text); got != tc.want {
			t.Errorf("ClassifyCategory(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestExtractAssignedTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"assign to john", "John"},
		{"assigned to MIKE please", "Mike"},
		{"send to sarah when ready", "Sarah"},
		{"dave should handle the rewiring", "Dave"},
		{"nobody mentioned here", ""},
	}
	for _, tc := range tests {
		if got := ExtractAssignedTo(tc.text); got != tc.want {
			t.Errorf("ExtractAssignedTo(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
