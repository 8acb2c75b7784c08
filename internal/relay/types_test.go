package relay

import "testing"

func TestCanonicalChatID(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want int64
	}{
		{
			name: "marked channel id",
			id:   -1001111111111,
			want: 1111111111,
		},
		{
			name: "bare channel id",
			id:   1111111111,
			want: 1111111111,
		},
		{
			name: "legacy negative group id",
			id:   -987654321,
			want: 987654321,
		},
		{
			name: "positive group id",
			id:   987654321,
			want: 987654321,
		},
		{
			name: "zero",
			id:   0,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalChatID(tt.id)
			if got != tt.want {
				t.Errorf("CanonicalChatID(%d) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestCanonicalChatID_BothSpellingsAgree(t *testing.T) {
	// the same channel addressed in marked and bare form must collapse to one key
	if CanonicalChatID(-1002222222222) != CanonicalChatID(2222222222) {
		t.Error("marked and bare channel id did not canonicalize to the same value")
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@SomeChannel", "somechannel"},
		{"somechannel", "somechannel"},
		{"  @Mixed_Case  ", "mixed_case"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeUsername(tt.in); got != tt.want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceRule_Identifier(t *testing.T) {
	tests := []struct {
		name string
		rule SourceRule
		want string
	}{
		{
			name: "id-configured channel",
			rule: SourceRule{Kind: KindChannel, ID: -1001111111111},
			want: "-1001111111111",
		},
		{
			name: "username-configured channel",
			rule: SourceRule{Kind: KindChannel, Username: "newsfeed"},
			want: "newsfeed",
		},
		{
			name: "id-configured public group",
			rule: SourceRule{Kind: KindPublicGroup, ID: 3333333333},
			want: "3333333333",
		},
		{
			name: "id wins when both are set",
			rule: SourceRule{Kind: KindPublicGroup, ID: 3333333333, Username: "workchat"},
			want: "3333333333",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Identifier(); got != tt.want {
				t.Errorf("Identifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSenderFilter_Allows(t *testing.T) {
	filter := &SenderFilter{
		Usernames: []string{"alice", "bob"},
		UserIDs:   []int64{42},
	}

	tests := []struct {
		name string
		user User
		want bool
	}{
		{
			name: "username match",
			user: User{ID: 1, Username: "alice"},
			want: true,
		},
		{
			name: "username match is case insensitive",
			user: User{ID: 1, Username: "ALICE"},
			want: true,
		},
		{
			name: "id match without username",
			user: User{ID: 42},
			want: true,
		},
		{
			name: "id match overrides unknown username",
			user: User{ID: 42, Username: "stranger"},
			want: true,
		},
		{
			name: "no match",
			user: User{ID: 7, Username: "mallory"},
			want: false,
		},
		{
			name: "zero user",
			user: User{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.Allows(tt.user); got != tt.want {
				t.Errorf("Allows(%+v) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}

func TestSenderFilter_Empty(t *testing.T) {
	var nilFilter *SenderFilter
	if !nilFilter.Empty() {
		t.Error("nil filter should be empty")
	}
	if !(&SenderFilter{}).Empty() {
		t.Error("zero filter should be empty")
	}
	if (&SenderFilter{UserIDs: []int64{1}}).Empty() {
		t.Error("filter with ids should not be empty")
	}
}
