package service

import "testing"

func TestShouldBroadcast(t *testing.T) {
	cases := []struct {
		message  string
		trigger  bool
		category string
	}{
		{"рекомендуй хорошую школу", true, "школ"},
		{"Порекомендуйте стоматолога", true, "стоматолог"},
		{"Какой лучший автосервис в городе?", true, "автосервис"},
		{"найди мне репетитора", true, "репетитор"},
		{"can you recommend a dentist", true, "dentist"},
		{"посоветуйте", true, ""},
		{"наилучший стоматолог", true, "стоматолог"},
		{"research lab", false, ""},
		{"привет, как дела", false, ""},
		{"спасибо!", false, ""},
	}
	for _, tc := range cases {
		category, ok := ShouldBroadcast(tc.message)
		if ok != tc.trigger {
			t.Fatalf("%q: expected trigger=%v, got %v", tc.message, tc.trigger, ok)
		}
		if category != tc.category {
			t.Fatalf("%q: expected category %q, got %q", tc.message, tc.category, category)
		}
	}
}

func TestClassifySearch(t *testing.T) {
	d := Classify("покажи курсы английского")
	if d.Action != ActionSearch {
		t.Fatalf("expected search, got %+v", d)
	}
	if d.Category != "курс" {
		t.Fatalf("expected category курс, got %q", d.Category)
	}
	if d.Triggered() {
		t.Fatalf("search must not trigger a broadcast")
	}

	d = Classify("где купить велосипед")
	if d.Action != ActionSearch || d.Category != "велосипед" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestClassifyPrefersBroadcast(t *testing.T) {
	d := Classify("ищу и посоветуйте лучший фитнес")
	if d.Action != ActionBroadcast {
		t.Fatalf("expected broadcast, got %+v", d)
	}
}

func TestClassifyNone(t *testing.T) {
	d := Classify("")
	if d.Action != ActionNone || d.Triggered() {
		t.Fatalf("expected none, got %+v", d)
	}
}
