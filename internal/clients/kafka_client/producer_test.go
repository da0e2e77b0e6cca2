package kafka_client

import (
	"testing"

	"github.com/spacesedan/ddscraper/internal/models"
)

func TestActionPayloadKeepsNullTicker(t *testing.T) {
	payload, err := EncodeAction(models.Action{
		PostID:          "abc",
		PostScore:       0.95,
		AvgCommentScore: 0.6,
		Decision:        models.DecisionBuy,
		TLDR:            "summary",
	})
	if err != nil {
		t.Fatalf("EncodeAction failed: %v", err)
	}

	got, err := DecodeAction(payload)
	if err != nil {
		t.Fatalf("DecodeAction failed: %v", err)
	}
	if got.DetectedTicker != nil {
		t.Errorf("Expected nil ticker, got %s", *got.DetectedTicker)
	}
	if got.PostID != "abc" || got.Decision != models.DecisionBuy || got.AvgCommentScore != 0.6 {
		t.Errorf("Unexpected action %+v", got)
	}
}

func TestActionPayloadTicker(t *testing.T) {
	ticker := "GME"
	payload, err := EncodeAction(models.Action{PostID: "x", DetectedTicker: &ticker, Decision: models.DecisionHold})
	if err != nil {
		t.Fatalf("EncodeAction failed: %v", err)
	}
	got, err := DecodeAction(payload)
	if err != nil {
		t.Fatalf("DecodeAction failed: %v", err)
	}
	if got.DetectedTicker == nil || *got.DetectedTicker != "GME" {
		t.Errorf("Expected ticker GME, got %v", got.DetectedTicker)
	}
}
