package topic

import "testing"

func TestValidTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  bool
	}{
		{"a/b/c", true},
		{"", false},
		{"a/+/c", false},
		{"a/#", false},
		{"a\x00b", false},
	}
	for _, c := range cases {
		if got := ValidTopic(c.topic); got != c.want {
			t.Errorf("ValidTopic(%q) = %v, want %v", c.topic, got, c.want)
		}
	}
}

func TestValidFilter(t *testing.T) {
	cases := []struct {
		filter string
		want   bool
	}{
		{"a/b/c", true},
		{"a/+/c", true},
		{"a/#", true},
		{"#", true},
		{"+", true},
		{"a/+", true},
		{"a/#/b", false}, // # must be the final level
		{"a/b#", false},  // # must occupy an entire level
		{"a+/b", false},  // + must occupy an entire level
		{"", false},
	}
	for _, c := range cases {
		if got := ValidFilter(c.filter); got != c.want {
			t.Errorf("ValidFilter(%q) = %v, want %v", c.filter, got, c.want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"sport/tennis/player1", "sport/tennis/player1", true},
		{"sport/tennis/player1/#", "sport/tennis/player1", true},
		{"sport/tennis/player1/#", "sport/tennis/player1/ranking", true},
		{"sport/tennis/player1/#", "sport/tennis/player1/score/wimbledon", true},
		{"sport/#", "sport", true},
		{"sport/+", "sport/tennis", true},
		{"sport/+", "sport/tennis/player1", false},
		{"+/+", "sport/tennis", true},
		{"/finance", "/finance", true},
		{"+/+", "/finance", true},
		{"+", "/finance", false},
		{"sport/tennis/#", "sport/tennis", true},
		{"sport/tennis/+", "sport/tennis", false},
		{"#", "$SYS/broker/load", true},
	}
	for _, c := range cases {
		if got := Matches(c.filter, c.topic); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.filter, c.topic, got, c.want)
		}
	}
}
