package persistence

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushSink struct {
	saved   []model.TireRecord
	flushes int
	err     error
}

func (f *flushSink) Save(_ context.Context, rec model.TireRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *flushSink) Flush(context.Context) error {
	f.flushes++
	return nil
}

func (f *flushSink) Name() string { return "flush" }

func TestMultiSavesToEverySink(t *testing.T) {
	down := errors.New("connection refused")
	a := &flushSink{}
	b := &flushSink{err: down}
	var got []string
	c := Func(func(_ context.Context, rec model.TireRecord) error {
		got = append(got, rec.Brand)
		return nil
	})

	err := Multi{a, b, c}.Save(context.Background(), model.TireRecord{Brand: "Kumho"})
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "flush: connection refused")
	assert.Len(t, a.saved, 1)
	assert.Equal(t, []string{"Kumho"}, got)
}

func TestMultiFlushOnlyFlushers(t *testing.T) {
	a := &flushSink{}
	m := Multi{a, Func(func(context.Context, model.TireRecord) error { return nil })}
	require.NoError(t, m.Flush(context.Background()))
	assert.Equal(t, 1, a.flushes)
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "flush", NameOf(&flushSink{}))
	assert.Equal(t, "func", NameOf(Func(nil)))
	assert.Equal(t, "flush", NameOf(Multi{&flushSink{}}))
	assert.Equal(t, "multi", NameOf(Multi{&flushSink{}, &flushSink{}}))
	assert.Equal(t, "log", NameOf(NewLog(zerolog.Nop())))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLog(zerolog.New(&buf))
	require.NoError(t, s.Save(context.Background(), model.TireRecord{Brand: "Nexen", Retailer: "walmart", Price: 89.5}))
	assert.Contains(t, buf.String(), `"brand":"Nexen"`)
	assert.Contains(t, buf.String(), `"price":89.5`)
	assert.Contains(t, buf.String(), `"component":"log_sink"`)
}
