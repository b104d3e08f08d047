package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

// audioAcquirer transcribes podcast (audio) episodes via ElevenLabs
// speech-to-text. No pack repo demonstrates podcast transcription
// end-to-end, so this is built directly against the ELEVENLABS_API_KEY
// environment variable rather than grounded on a teacher file. It reads
// none of the audio_processing.* settings: the whole enclosure is sent
// in one request.
type audioAcquirer struct {
	apiKey string
	model  string
	client *http.Client
}

func newAudioAcquirer(apiKey, model string) *audioAcquirer {
	if model == "" {
		model = "scribe_v1"
	}
	return &audioAcquirer{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

const elevenLabsTranscribeURL = "https://api.elevenlabs.io/v1/speech-to-text"

type elevenLabsResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// acquire downloads the episode's audio enclosure and submits it to
// ElevenLabs for transcription. ElevenLabs does not distinguish
// manual vs auto-generated captions, so AutoGenerated is always true
// for this path (it is, definitionally, machine-generated).
func (a *audioAcquirer) acquire(ctx context.Context, descriptor core.EpisodeDescriptor) Outcome {
	if a.apiKey == "" {
		return transient("elevenlabs api key not configured")
	}
	if descriptor.ContentURL == "" {
		return notAvailable("episode has no audio enclosure url")
	}

	audio, status, err := a.download(ctx, descriptor.ContentURL)
	if err != nil {
		return transient("failed to download audio: " + err.Error())
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return notAvailable(fmt.Sprintf("audio enclosure returned %d", status))
	}
	if status == http.StatusTooManyRequests {
		return transient("rate limited downloading audio enclosure")
	}
	if status != http.StatusOK {
		return transient(fmt.Sprintf("audio enclosure returned unexpected status %d", status))
	}

	text, language, err := a.transcribe(ctx, audio)
	if err != nil {
		if isTransientElevenLabsError(err) {
			return transient(err.Error())
		}
		return notAvailable(err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return notAvailable("elevenlabs returned an empty transcript")
	}

	wordCount := len(strings.Fields(text))
	if language == "" {
		language = "en"
	}
	return ok(text, wordCount, language, true)
}

func (a *audioAcquirer) download(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (a *audioAcquirer) transcribe(ctx context.Context, audio []byte) (text, language string, err error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("model_id", a.model); err != nil {
		return "", "", err
	}
	part, err := writer.CreateFormFile("file", "episode.audio")
	if err != nil {
		return "", "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", "", err
	}
	if err := writer.Close(); err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elevenLabsTranscribeURL, &buf)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("xi-api-key", a.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", "", fmt.Errorf("rate limited by elevenlabs (http 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("elevenlabs transcription failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed elevenLabsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", fmt.Errorf("failed to parse elevenlabs response: %w", err)
	}
	return parsed.Text, parsed.LanguageCode, nil
}

func isTransientElevenLabsError(err error) bool {
	return strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "rate limited")
}
