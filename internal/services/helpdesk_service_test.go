package services

import "testing"

func TestBestMatch(t *testing.T) {
	svc := NewHelpdeskService("https://help.example.test", nil)

	tests := []struct {
		message string
		title   string
	}{
		{"how do I create and send a new survey", "Creating and sending a survey"},
		{"how is the nps score calculated", "Understanding your NPS score"},
		{"can I import parents from a csv upload", "Importing parents and students"},
		{"where do I change my notification settings", "Account and notification settings"},
		{"how do I export a pdf report", "Exporting reports"},
	}

	for _, tt := range tests {
		article, found := svc.BestMatch(tt.message)
		if !found {
			t.Errorf("Message %q: expected a match", tt.message)
			continue
		}
		if article.Title != tt.title {
			t.Errorf("Message %q: expected %q, got %q", tt.message, tt.title, article.Title)
		}
	}
}

func TestBestMatchNoOverlap(t *testing.T) {
	svc := NewHelpdeskService("https://help.example.test", nil)

	if _, found := svc.BestMatch("completely unrelated question"); found {
		t.Error("Expected no match for a message with zero keyword overlap")
	}
}

func TestBestMatchTieGoesToEarlierArticle(t *testing.T) {
	svc := NewHelpdeskService("https://help.example.test", nil)

	// "invite" appears in both the survey and the roles articles; the
	// earlier catalog entry wins the tie.
	article, found := svc.BestMatch("invite")
	if !found {
		t.Fatal("Expected a match")
	}
	if article.Title != "Creating and sending a survey" {
		t.Errorf("Expected the earlier article to win the tie, got %q", article.Title)
	}
}
