//go:build integration

package pdf

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRodRendererPrintsA3(t *testing.T) {
	r := NewRodRenderer(Options{PoolSize: 2, QueueSize: 4, Timeout: time.Minute}, zap.NewNop())
	t.Cleanup(func() { r.Close() })

	doc, sections := sampleDoc()
	page, err := NewPage(doc, sections, "Operations", "Jane Doe")
	require.NoError(t, err)
	html, err := RenderHTML(page)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Render(context.Background(), html)
			if err == nil && !bytes.HasPrefix(out, []byte("%PDF")) {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
