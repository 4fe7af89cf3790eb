package tier

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Tier
	}{
		{"free", "free", Free},
		{"pro", "pro", Pro},
		{"enterprise", "enterprise", Enterprise},
		{"unknown falls back to free", "platinum", Free},
		{"empty falls back to free", "", Free},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.in); got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(Free)
	if free.MaxGroups != 1 || free.SemanticEnabled || free.ExportEnabled {
		t.Errorf("free limits = %+v, want 1 group and no features", free)
	}
	if free.MaxAnalysesPerDay == nil || *free.MaxAnalysesPerDay != 3 {
		t.Errorf("free MaxAnalysesPerDay = %v, want 3", free.MaxAnalysesPerDay)
	}

	pro := LimitsFor(Pro)
	if pro.MaxAnalysesPerDay != nil {
		t.Errorf("pro MaxAnalysesPerDay = %v, want unlimited", *pro.MaxAnalysesPerDay)
	}
	if pro.MaxGroups != 2 || !pro.ChatEnabled {
		t.Errorf("pro limits = %+v, want 2 groups with chat", pro)
	}

	enterprise := LimitsFor(Enterprise)
	if enterprise.MaxWords != nil || enterprise.ChatMessagesPerMonth != nil {
		t.Errorf("enterprise limits = %+v, want unlimited words and chat", enterprise)
	}

	if got := LimitsFor(Tier("bogus")); got.MaxGroups != 1 {
		t.Errorf("unknown tier limits = %+v, want free limits", got)
	}
}

func TestWithin(t *testing.T) {
	three := 3
	tests := []struct {
		name    string
		current int
		limit   *int
		want    bool
	}{
		{"unlimited", 1000, nil, true},
		{"below limit", 2, &three, true},
		{"at limit", 3, &three, false},
		{"above limit", 4, &three, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Within(tt.current, tt.limit); got != tt.want {
				t.Errorf("Within(%d, %v) = %v, want %v", tt.current, tt.limit, got, tt.want)
			}
		})
	}
}

func TestMaxUploadBytes(t *testing.T) {
	if got := LimitsFor(Free).MaxUploadBytes(); got != 5<<20 {
		t.Errorf("free MaxUploadBytes = %d, want %d", got, 5<<20)
	}
}
