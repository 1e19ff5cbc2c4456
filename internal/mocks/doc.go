// Package mocks provides centralized mock implementations for testing.
//
// Each mock exposes function fields for every interface method. When a
// function field is nil the mock falls back to a simple in-memory behaviour,
// so most tests only override the calls they care about:
//
//	history := &mocks.MockWorkoutHistory{Excluded: []int64{1, 2, 3}}
//	wods := mocks.NewMockWodStore()
//	wods.SaveFn = func(ctx context.Context, w *domain.Wod) (int64, error) {
//	    return 0, errors.New("disk full")
//	}
package mocks
