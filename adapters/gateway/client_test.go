package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeGateway records what each endpoint received
type fakeGateway struct {
	mu       sync.Mutex
	bodies   map[string]map[string]string
	upload   []byte
	fileName string
	fileType string
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	fg := &fakeGateway{bodies: make(map[string]map[string]string)}

	e := echo.New()
	e.HEAD("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	reply := func(path, text string) {
		e.POST(path, func(c echo.Context) error {
			var body map[string]string
			if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			fg.mu.Lock()
			fg.bodies[path] = body
			fg.mu.Unlock()
			return c.JSON(http.StatusOK, map[string]string{"reply": text})
		})
	}
	reply("/correct", "I have an apple")
	reply("/translate", "hola")
	reply("/sentiment", "Positive")
	reply("/multilingual", "Bonjour!")

	e.POST("/tts", func(c echo.Context) error {
		var body map[string]string
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return err
		}
		fg.mu.Lock()
		fg.bodies["/tts"] = body
		fg.mu.Unlock()
		return c.JSON(http.StatusOK, map[string]string{"audio_url": "http://localhost:5001/static/audio/1.mp3"})
	})

	e.POST("/speech", func(c echo.Context) error {
		fh, err := c.FormFile("audio")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing audio"})
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		fg.mu.Lock()
		fg.upload = data
		fg.fileName = fh.Filename
		fg.fileType = fh.Header.Get("Content-Type")
		fg.mu.Unlock()
		return c.JSON(http.StatusOK, map[string]string{"reply": "You said: hello there"})
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return fg, server
}

func newTestClient(t *testing.T, baseURL string) *Client {
	client, err := NewClient(Config{BaseURL: baseURL, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func TestClientTextOperations(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := newTestClient(t, server.URL+"/")
	ctx := context.Background()

	reply, err := client.Correct(ctx, "I has an apple")
	require.NoError(t, err)
	assert.Equal(t, "I have an apple", reply)
	assert.Equal(t, map[string]string{"message": "I has an apple"}, fg.bodies["/correct"])

	reply, err = client.Translate(ctx, "hello", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", reply)
	assert.Equal(t, map[string]string{"message": "hello", "target_lang": "es"}, fg.bodies["/translate"])

	reply, err = client.AnalyzeSentiment(ctx, "I love it")
	require.NoError(t, err)
	assert.Equal(t, "Positive", reply)
	assert.Equal(t, map[string]string{"message": "I love it"}, fg.bodies["/sentiment"])

	reply, err = client.ProcessMultilingual(ctx, "hello", AutoDetect, "fr")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour!", reply)
	assert.Equal(t, map[string]string{"message": "hello", "source_lang": "auto", "target_lang": "fr"}, fg.bodies["/multilingual"])

	audioURL, err := client.Synthesize(ctx, "hola")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5001/static/audio/1.mp3", audioURL)
	assert.Equal(t, map[string]string{"message": "hola"}, fg.bodies["/tts"])
}

func TestClientTranscribe(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := newTestClient(t, server.URL)

	reply, err := client.Transcribe(context.Background(), []byte("RIFFchunk1chunk2"))
	require.NoError(t, err)

	assert.Equal(t, "You said: hello there", reply)
	assert.Equal(t, []byte("RIFFchunk1chunk2"), fg.upload)
	assert.Equal(t, "recording.wav", fg.fileName)
	assert.Equal(t, "audio/wav", fg.fileType)
}

func TestClientNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Translate(context.Background(), "hello", "es")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayStatus)

	_, err = client.Transcribe(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrGatewayStatus)
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := newTestClient(t, baseURL)

	_, err := client.Correct(context.Background(), "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGatewayStatus)
}

func TestClientMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.AnalyzeSentiment(context.Background(), "hello")
	assert.Error(t, err)
}

func TestClientProbe(t *testing.T) {
	_, server := newFakeGateway(t)
	client := newTestClient(t, server.URL)
	assert.True(t, client.Probe(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	assert.False(t, newTestClient(t, down.URL).Probe(context.Background()))
}

func TestClientProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	client, err := NewClient(Config{BaseURL: slow.URL, ProbeTimeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	start := time.Now()
	assert.False(t, client.Probe(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, defaultBaseURL, client.BaseURL())
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, defaultProbeTimeout, client.probeTimeout)
}

func TestNewClientWithSocksProxy(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://gateway:5001", SocksProxy: "127.0.0.1:1080"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, ok := client.httpClient.Transport.(*http.Transport)
	assert.True(t, ok)
}
