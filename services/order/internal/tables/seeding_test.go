package tables

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestApplyTableSeeds(t *testing.T) {
	seedFS := fstest.MapFS{
		"seed.json": &fstest.MapFile{Data: []byte(`{"tables":[
			{"number":"1","capacity":2,"zone":"non-ac"},
			{"number":"7","capacity":4,"zone":"ac","floor":1},
			{"number":" "}
		]}`)},
	}

	repo := NewFakeTableRepo()
	tracker := NewFakeSeedTracker()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := ApplyTableSeeds(ctx, repo, tracker, seedFS, nil); err != nil {
			t.Fatalf("ApplyTableSeeds() run %d error = %v", i, err)
		}
	}

	tables, _ := repo.List(ctx)
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}

	ac, _ := repo.GetByNumber(ctx, "7")
	if ac == nil || !ac.IsAC() || ac.Floor != 1 {
		t.Errorf("table 7 = %+v, want AC on floor 1", ac)
	}
}

func TestApplyTableSeedsErrors(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
	}{
		{name: "missingFile", fs: fstest.MapFS{}},
		{name: "emptyTables", fs: fstest.MapFS{"seed.json": &fstest.MapFile{Data: []byte(`{"tables":[]}`)}}},
		{name: "invalidJSON", fs: fstest.MapFS{"seed.json": &fstest.MapFile{Data: []byte(`{`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ApplyTableSeeds(context.Background(), NewFakeTableRepo(), NewFakeSeedTracker(), tt.fs, nil)
			if err == nil {
				t.Error("ApplyTableSeeds() should fail")
			}
		})
	}
}

func TestSeedIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "12", want: "12"},
		{in: "Patio A-1", want: "patio_a_1"},
		{in: "***", want: "seed"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := seedIdentifier(tt.in); got != tt.want {
				t.Errorf("seedIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
