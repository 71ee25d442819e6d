package services

import "testing"

func TestComputeNPSEmpty(t *testing.T) {
	if result := ComputeNPS(nil); result != nil {
		t.Errorf("Expected nil for empty input, got %+v", result)
	}
	if result := ComputeNPS([]int{}); result != nil {
		t.Errorf("Expected nil for empty slice, got %+v", result)
	}
}

func TestComputeNPSClassification(t *testing.T) {
	// 9 and 10 are promoters, 8 is passive, 5 is a detractor
	result := ComputeNPS([]int{10, 10, 8, 5, 9})
	if result == nil {
		t.Fatal("Expected a result, got nil")
	}

	if result.Total != 5 {
		t.Errorf("Expected Total 5, got %d", result.Total)
	}
	if result.Promoters != 3 {
		t.Errorf("Expected Promoters 3, got %d", result.Promoters)
	}
	if result.Passives != 1 {
		t.Errorf("Expected Passives 1, got %d", result.Passives)
	}
	if result.Detractors != 1 {
		t.Errorf("Expected Detractors 1, got %d", result.Detractors)
	}
	if result.Score != 40.0 {
		t.Errorf("Expected Score 40.0, got %v", result.Score)
	}
}

func TestComputeNPSBoundaries(t *testing.T) {
	tests := []struct {
		score      int
		promoters  int
		passives   int
		detractors int
	}{
		{10, 1, 0, 0},
		{9, 1, 0, 0},
		{8, 0, 1, 0},
		{7, 0, 1, 0},
		{6, 0, 0, 1},
		{0, 0, 0, 1},
	}

	for _, tt := range tests {
		result := ComputeNPS([]int{tt.score})
		if result.Promoters != tt.promoters || result.Passives != tt.passives || result.Detractors != tt.detractors {
			t.Errorf("Score %d: expected %d/%d/%d, got %d/%d/%d",
				tt.score, tt.promoters, tt.passives, tt.detractors,
				result.Promoters, result.Passives, result.Detractors)
		}
	}
}

func TestComputeNPSBucketsSumToTotal(t *testing.T) {
	scores := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 7, 9}
	result := ComputeNPS(scores)

	if result.Promoters+result.Passives+result.Detractors != result.Total {
		t.Errorf("Buckets %d+%d+%d do not sum to total %d",
			result.Promoters, result.Passives, result.Detractors, result.Total)
	}
	if result.Total != len(scores) {
		t.Errorf("Expected Total %d, got %d", len(scores), result.Total)
	}
}

func TestComputeNPSRounding(t *testing.T) {
	// 1 promoter, 1 passive, 1 detractor: 33.333% - 33.333% = 0.0
	result := ComputeNPS([]int{10, 8, 3})
	if result.Score != 0.0 {
		t.Errorf("Expected Score 0.0, got %v", result.Score)
	}
	if result.PromoterPct != 33.3 {
		t.Errorf("Expected PromoterPct 33.3, got %v", result.PromoterPct)
	}

	// 2 promoters, 1 detractor: 66.667% - 33.333% = 33.3 after rounding
	result = ComputeNPS([]int{10, 9, 2})
	if result.Score != 33.3 {
		t.Errorf("Expected Score 33.3, got %v", result.Score)
	}
}

func TestComputeNPSAllDetractors(t *testing.T) {
	result := ComputeNPS([]int{0, 1, 2})
	if result.Score != -100.0 {
		t.Errorf("Expected Score -100.0, got %v", result.Score)
	}
}
