package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ModelInfo is reported by the inference service once its weights are loaded.
type ModelInfo struct {
	ModelID string `json:"model_id"`
	Device  string `json:"device"`
}

type predictResponse struct {
	LogitsPerImage []float64 `json:"logits_per_image"`
}

// RemoteClassifier calls an inference service that hosts the PLIP/CLIP weights.
// GET {url}/model loads the model, POST {url}/predict scores one image.
type RemoteClassifier struct {
	baseURL string
	client  *http.Client

	once    sync.Once
	loaded  chan struct{} // closed when the load attempt finishes
	info    ModelInfo
	loadErr error
}

// NewRemoteClassifier creates an adapter for the service at baseURL. A nil client gets a
// default one with the given timeout.
func NewRemoteClassifier(baseURL string, client *http.Client, timeout time.Duration) *RemoteClassifier {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &RemoteClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		loaded:  make(chan struct{}),
	}
}

// Load asks the service to load its weights. Only the first call starts a load; later calls
// wait for its outcome, so a failed load is never retried. The load itself is detached from
// ctx and bounded by the client timeout: a caller giving up only fails that caller.
func (c *RemoteClassifier) Load(ctx context.Context) error {
	c.once.Do(func() {
		go c.load(context.WithoutCancel(ctx))
	})
	select {
	case <-c.loaded:
		return c.loadErr
	case <-ctx.Done():
		return fmt.Errorf("wait for model load: %w", ctx.Err())
	}
}

func (c *RemoteClassifier) load(ctx context.Context) {
	defer close(c.loaded)
	info, err := c.fetchModel(ctx)
	if err != nil {
		c.loadErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		log.Printf("classifier: model load failed: %v", err)
		return
	}
	c.info = info
	log.Printf("classifier: model %s loaded on %s", info.ModelID, info.Device)
}

// Info returns the loaded model description. Empty until Load succeeds.
func (c *RemoteClassifier) Info() ModelInfo {
	if c.Load(context.Background()) != nil {
		return ModelInfo{}
	}
	return c.info
}

func (c *RemoteClassifier) fetchModel(ctx context.Context) (ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/model", nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ModelInfo{}, fmt.Errorf("model load failed with status: %d", resp.StatusCode)
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ModelInfo{}, fmt.Errorf("decode response: %w", err)
	}
	return info, nil
}

// Predict implements Classifier. The model is loaded lazily if Load was not called.
func (c *RemoteClassifier) Predict(ctx context.Context, img image.Image, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}
	if err := writer.WriteField("labels", string(labelsJSON)); err != nil {
		return nil, fmt.Errorf("write labels field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.LogitsPerImage) != len(labels) {
		return nil, fmt.Errorf("inference returned %d logits for %d labels", len(result.LogitsPerImage), len(labels))
	}

	probs := Softmax(result.LogitsPerImage)
	out := make(map[string]float64, len(labels))
	for i, label := range labels {
		out[label] = probs[i]
	}
	return out, nil
}
