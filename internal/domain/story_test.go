package domain

import (
	"errors"
	"testing"
)

func TestValidateSceneSequence(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		wantErr bool
	}{
		{name: "empty", numbers: nil},
		{name: "ordered", numbers: []int{1, 2, 3}},
		{name: "unordered", numbers: []int{3, 1, 2}},
		{name: "gap", numbers: []int{1, 3}, wantErr: true},
		{name: "duplicate", numbers: []int{1, 1, 2}, wantErr: true},
		{name: "starts at two", numbers: []int{2, 3}, wantErr: true},
		{name: "zero", numbers: []int{0, 1}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scenes := make([]Scene, len(tc.numbers))
			for i, n := range tc.numbers {
				scenes[i].SceneNumber = n
			}
			err := ValidateSceneSequence(scenes)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseSceneImageStatus(t *testing.T) {
	for _, v := range []string{"PROCESSING", "COMPLETED", "FAILED"} {
		if _, err := ParseSceneImageStatus(v); err != nil {
			t.Fatalf("%s rejected: %v", v, err)
		}
	}
	if _, err := ParseSceneImageStatus("completed"); err == nil {
		t.Fatalf("expected lowercase status to be rejected")
	}
	if SceneImageProcessing.Terminal() || !SceneImageFailed.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestLatestPerSceneKeepsNewest(t *testing.T) {
	rows := []SceneImage{
		{ID: "a", SceneID: "s1", Status: SceneImageFailed},
		{ID: "b", SceneID: "s2", Status: SceneImageCompleted},
		{ID: "c", SceneID: "s1", Status: SceneImageProcessing},
	}
	latest := LatestPerScene(rows)
	if len(latest) != 2 || latest["s1"].ID != "c" {
		t.Fatalf("unexpected latest map: %+v", latest)
	}
}
