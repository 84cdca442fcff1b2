package prayer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vakit-notify/internal/models"
)

const istanbulJSON = `{"success":true,"result":[
{"vakit":"İmsak","saat":"06:43"},{"vakit":"Güneş","saat":"08:13"},
{"vakit":"Öğle","saat":"13:11"},{"vakit":"İkindi","saat":"15:38"},
{"vakit":"Akşam","saat":"17:59"},{"vakit":"Yatsı","saat":"19:24"}]}`

func testLocality() Locality {
	return Locality{Key: "istanbul", Name: "İstanbul", Slug: "istanbul", Location: time.UTC}
}

func TestClient_Times(t *testing.T) {
	var gotCity, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCity = r.URL.Query().Get("data.city")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(istanbulJSON))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "secret"}
	times, err := c.Times(context.Background(), testLocality(), models.Date{Year: 2024, Month: 1, Day: 10})
	require.NoError(t, err)

	assert.Equal(t, "istanbul", gotCity)
	assert.Equal(t, "apikey secret", gotAuth)
	require.Len(t, times, 6)
	assert.Equal(t, models.PrayerTime{Vakit: "Öğle", Saat: "13:11"}, times[2])
}

func TestClient_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error":   {http.StatusInternalServerError, `{"success":false}`},
		"not success":    {http.StatusOK, `{"success":false,"message":"city not found"}`},
		"missing result": {http.StatusOK, `{"success":true}`},
		"too few":        {http.StatusOK, `{"success":true,"result":[{"vakit":"İmsak","saat":"06:43"}]}`},
		"bad json":       {http.StatusOK, `{"success":`},
		"bad clock": {http.StatusOK, `{"success":true,"result":[
{"vakit":"İmsak","saat":"6"},{"vakit":"Güneş","saat":"08:13"},
{"vakit":"Öğle","saat":"13:11"},{"vakit":"İkindi","saat":"15:38"},
{"vakit":"Akşam","saat":"17:59"},{"vakit":"Yatsı","saat":"19:24"}]}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := &Client{BaseURL: srv.URL}
			_, err := c.Times(context.Background(), testLocality(), models.Date{})
			assert.ErrorIs(t, err, ErrLocalityUnresolved)
		})
	}
}

func TestClient_TimeoutIsLocalityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := &Client{BaseURL: srv.URL}
	_, err := c.Times(ctx, testLocality(), models.Date{})
	assert.ErrorIs(t, err, ErrLocalityUnresolved)
}

type mapCache struct {
	data   map[string][]models.PrayerTime
	writes int
}

func (m *mapCache) GetTimes(_ context.Context, key string, day models.Date) ([]models.PrayerTime, bool, error) {
	v, ok := m.data[key+"|"+day.String()]
	return v, ok, nil
}

func (m *mapCache) PutTimes(_ context.Context, key string, day models.Date, times []models.PrayerTime) error {
	m.data[key+"|"+day.String()] = times
	m.writes++
	return nil
}

func TestCachedSource(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(istanbulJSON))
	}))
	defer srv.Close()

	cache := &mapCache{data: map[string][]models.PrayerTime{}}
	src := &CachedSource{Upstream: &Client{BaseURL: srv.URL}, Cache: cache, Log: zerolog.Nop()}
	day := models.Date{Year: 2024, Month: 1, Day: 10}

	for i := 0; i < 3; i++ {
		times, err := src.Times(context.Background(), testLocality(), day)
		require.NoError(t, err)
		require.Len(t, times, 6)
	}
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, cache.writes)

	_, err := src.Times(context.Background(), testLocality(), day.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}
