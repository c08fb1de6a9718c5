package service

import (
	"context"
	"errors"
	"sync"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
)

func intPtr(v int) *int             { return &v }
func float64Ptr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool          { return &v }
func strPtr(v string) *string       { return &v }

// testCatalog is an in-memory PhoneCatalog
type testCatalog struct {
	phones []model.Phone
}

func (c testCatalog) All() []model.Phone { return c.phones }

func (c testCatalog) Get(id string) (model.Phone, bool) {
	for _, p := range c.phones {
		if p.ID == id {
			return p, true
		}
	}
	return model.Phone{}, false
}

type phoneSpec struct {
	inches  float64
	hz      int
	mah     int
	watts   int
	ois     *bool
	rating  float64
	summary string
	tags    []model.Feature
}

func newPhone(id, brand, name string, price int, os model.OS, s phoneSpec) model.Phone {
	p := model.Phone{
		ID:              id,
		Brand:           brand,
		Model:           name,
		Price:           price,
		OS:              os,
		RAMGB:           intPtr(8),
		StorageGB:       intPtr(128),
		CameraPrimaryMP: intPtr(50),
		HasOIS:          s.ois,
		Tags:            s.tags,
	}
	if s.inches > 0 {
		p.DisplayInches = float64Ptr(s.inches)
	}
	if s.hz > 0 {
		p.RefreshRateHz = intPtr(s.hz)
	}
	if s.mah > 0 {
		p.BatteryMAh = intPtr(s.mah)
	}
	if s.watts > 0 {
		p.ChargingW = intPtr(s.watts)
	}
	if s.rating > 0 {
		p.Rating = float64Ptr(s.rating)
	}
	if s.summary != "" {
		p.Summary = strPtr(s.summary)
	}
	return p
}

func fixturePhones() []model.Phone {
	yes, no := boolPtr(true), boolPtr(false)
	return []model.Phone{
		newPhone("samsung-a55", "Samsung", "Galaxy A55 5G", 39999, model.OSAndroid, phoneSpec{
			inches: 6.6, hz: 120, mah: 5000, watts: 25, ois: yes, rating: 4.3,
			summary: "Metal-frame midranger", tags: []model.Feature{model.FeatureCamera, model.FeatureDisplay},
		}),
		newPhone("samsung-m14", "Samsung", "Galaxy M14 5G", 13990, model.OSAndroid, phoneSpec{
			inches: 6.6, hz: 90, mah: 6000, watts: 25, ois: no, rating: 4.1,
			summary: "Budget Samsung with a big battery", tags: []model.Feature{model.FeatureBattery},
		}),
		newPhone("moto-g54", "Motorola", "Moto G54 5G", 15999, model.OSAndroid, phoneSpec{
			inches: 6.5, hz: 120, mah: 6000, watts: 33, ois: yes, rating: 4.2,
			summary: "Near-stock Android", tags: []model.Feature{model.FeatureBattery},
		}),
		newPhone("pixel-8a", "Google", "Pixel 8a", 52999, model.OSAndroid, phoneSpec{
			inches: 6.1, hz: 120, mah: 4492, watts: 18, ois: yes, rating: 4.5,
			summary: "Great camera", tags: []model.Feature{model.FeatureCamera, model.FeatureCompact},
		}),
		newPhone("oneplus-12r", "OnePlus", "12R", 39999, model.OSAndroid, phoneSpec{
			inches: 6.78, hz: 120, mah: 5500, watts: 100, ois: yes, rating: 4.5,
			summary: "Fast and long lasting",
			tags: []model.Feature{model.FeaturePerformance, model.FeatureBattery, model.FeatureCharging,
				model.FeatureDisplay, model.FeatureGaming},
		}),
		newPhone("apple-iphone-15", "Apple", "iPhone 15", 69900, model.OSIOS, phoneSpec{
			inches: 6.1, hz: 60, mah: 3349, watts: 20, ois: yes, rating: 4.6,
			summary: "Compact iPhone", tags: []model.Feature{model.FeatureCamera, model.FeatureCompact, model.FeaturePerformance},
		}),
		newPhone("realme-narzo-70", "Realme", "Narzo 70 5G", 15499, model.OSAndroid, phoneSpec{
			mah: 5000, watts: 45, tags: []model.Feature{model.FeatureBattery, model.FeatureCharging},
		}),
	}
}

func fixtureCatalog() testCatalog {
	return testCatalog{phones: fixturePhones()}
}

func mustPhone(id string) model.Phone {
	p, ok := fixtureCatalog().Get(id)
	if !ok {
		panic("unknown fixture phone " + id)
	}
	return p
}

func testPatterns() *config.Patterns {
	return config.DefaultPatterns()
}

// fakeGenerator scripts model replies and records requests
type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	thinking []string
	block    bool
	panicMsg string
	disabled bool
	requests []GenerationRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	return f.GenerateStream(ctx, req, nil)
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, req GenerationRequest, onThinking func(string) error) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for _, t := range f.thinking {
		if onThinking != nil {
			if err := onThinking(t); err != nil {
				return "", err
			}
		}
	}
	return f.reply, f.err
}

func (f *fakeGenerator) IsEnabled() bool { return !f.disabled }
func (f *fakeGenerator) Name() string    { return "fake" }

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGenerator) lastRequest() GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// chanRecorder hands every record to a channel
type chanRecorder struct {
	records chan TurnRecord
	err     error
}

func newChanRecorder() *chanRecorder {
	return &chanRecorder{records: make(chan TurnRecord, 8)}
}

func (r *chanRecorder) RecordTurn(_ context.Context, rec TurnRecord) error {
	r.records <- rec
	return r.err
}

var errBoom = errors.New("boom")
