package dispatcher

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/models"
)

// webhookPayload is the JSON body posted per alert.
type webhookPayload struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	GuildID     uint64            `json:"guild_id"`
	SubjectID   uint64            `json:"subject_id,omitempty"`
	Severity    string            `json:"severity"`
	Score       float64           `json:"score,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
	Timestamp   int64             `json:"timestamp"`
}

// WebhookDispatcher delivers alerts to an HTTP endpoint through a worker
// pool. Enqueue never blocks the detection path: a full queue drops the
// delivery (the alert is already retained in the manager).
type WebhookDispatcher struct {
	url      string
	jobs     chan models.Alert
	httpPool *HTTPPool
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewWebhookDispatcher(url string, workers, poolSize, queueCap int) *WebhookDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueCap <= 0 {
		queueCap = 1024
	}
	return &WebhookDispatcher{
		url:      url,
		jobs:     make(chan models.Alert, queueCap),
		httpPool: NewHTTPPool(poolSize),
		workers:  workers,
	}
}

func (w *WebhookDispatcher) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
}

func (w *WebhookDispatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.jobs)
	})
	w.wg.Wait()
}

// Notify implements alerts.Sink.
func (w *WebhookDispatcher) Notify(alert models.Alert) {
	select {
	case w.jobs <- alert:
	default:
		logging.Warn("dispatcher: webhook queue full, dropping delivery of alert %s", alert.ID)
	}
}

func (w *WebhookDispatcher) worker(id int) {
	defer w.wg.Done()

	for alert := range w.jobs {
		if err := w.deliver(alert); err != nil {
			logging.Warn("dispatcher: worker %d failed to deliver alert %s: %v", id, alert.ID, err)
		}
	}
}

func (w *WebhookDispatcher) deliver(alert models.Alert) error {
	body, err := json.Marshal(webhookPayload{
		ID:          alert.ID,
		Type:        string(alert.Type),
		GuildID:     alert.GuildID,
		SubjectID:   alert.SubjectID,
		Severity:    alert.Severity.String(),
		Score:       alert.Score,
		Title:       alert.Title,
		Description: alert.Description,
		Details:     alert.Details,
		Timestamp:   alert.Timestamp,
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := w.httpPool.GetClient().DoTimeout(req, resp, 5*time.Second); err != nil {
		return err
	}

	if code := resp.StatusCode(); code >= 300 {
		return &statusError{code: code}
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "webhook responded " + fasthttp.StatusMessage(e.code)
}
