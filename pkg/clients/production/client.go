package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/knittrack/internal/config"
	"github.com/mamadbah2/knittrack/internal/domain/models"
)

// Client exposes the production backend operations used by the application.
type Client interface {
	CreateEntry(ctx context.Context, in models.EntryInput, photo *models.Photo) (*models.ProductionEntry, error)
	UpdateEntry(ctx context.Context, id int, upd models.EntryUpdate, photo *models.Photo) (*models.ProductionEntry, error)
	GetEntry(ctx context.Context, id int) (*models.ProductionEntry, error)
	GetEntryForView(ctx context.Context, id int) (*models.ProductionEntry, error)
	ListEntries(ctx context.Context, filter models.EntryFilter) (*models.PaginatedResponse[models.ProductionEntry], error)
	ListAllEntries(ctx context.Context) ([]models.ProductionEntry, error)
	ListEntriesByDateRange(ctx context.Context, q models.DateRangeQuery) ([]models.ProductionEntry, error)
	CheckEditability(ctx context.Context, id int) (*models.EditabilityCheck, error)
	CurrentSummary(ctx context.Context) (*models.ProductionSummary, error)
	CalculateSummary(ctx context.Context) (*models.ProductionSummary, error)
	Statistics(ctx context.Context) (*models.ProductionStatistics, error)
	Machines(ctx context.Context) ([]string, error)
	EntriesSummary(ctx context.Context) ([]models.EntrySummary, error)
	DownloadExcel(ctx context.Context) ([]byte, error)
	ExcelPath(ctx context.Context) (string, error)
	PhotoURL(photoPath string) string
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	origin     string
}

// NewClient builds a backend client using the provided configuration values.
func NewClient(cfg config.BackendConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &APIClient{
		httpClient: restyClient,
		origin:     strings.TrimSuffix(base, "/api"),
	}
}

// apiError is the error body shape of the backend (ASP.NET problem details or a plain message).
type apiError struct {
	Message string              `json:"message"`
	Title   string              `json:"title"`
	Detail  string              `json:"detail"`
	Errors  map[string][]string `json:"errors"`
}

func (e *apiError) text() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Detail != "":
		return e.Detail
	default:
		return e.Title
	}
}

func (c *APIClient) CreateEntry(ctx context.Context, in models.EntryInput, photo *models.Photo) (*models.ProductionEntry, error) {
	result := new(models.ProductionEntry)
	req := c.multipart(ctx, in.FormFields(), photo).SetResult(result)

	if err := c.do(req, http.MethodPost, "/production/entries", false); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	if err := checkEntryShape(result); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return result, nil
}

func (c *APIClient) UpdateEntry(ctx context.Context, id int, upd models.EntryUpdate, photo *models.Photo) (*models.ProductionEntry, error) {
	result := new(models.ProductionEntry)
	req := c.multipart(ctx, upd.FormFields(), photo).SetResult(result)

	if err := c.do(req, http.MethodPut, entryPath(id), true); err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	if err := checkEntryShape(result); err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	return result, nil
}

func (c *APIClient) GetEntry(ctx context.Context, id int) (*models.ProductionEntry, error) {
	result := new(models.ProductionEntry)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, entryPath(id), false); err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	if err := checkEntryShape(result); err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return result, nil
}

func (c *APIClient) GetEntryForView(ctx context.Context, id int) (*models.ProductionEntry, error) {
	result := new(models.ProductionEntry)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, entryPath(id)+"/view", false); err != nil {
		return nil, fmt.Errorf("get entry %d for view: %w", id, err)
	}
	if err := checkEntryShape(result); err != nil {
		return nil, fmt.Errorf("get entry %d for view: %w", id, err)
	}
	return result, nil
}

func (c *APIClient) ListEntries(ctx context.Context, filter models.EntryFilter) (*models.PaginatedResponse[models.ProductionEntry], error) {
	result := new(models.PaginatedResponse[models.ProductionEntry])
	req := c.request(ctx).SetQueryParams(filterParams(filter)).SetResult(result)

	if err := c.do(req, http.MethodGet, "/production/entries/paginated", false); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if err := checkEntriesShape(result.Items); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return result, nil
}

func (c *APIClient) ListAllEntries(ctx context.Context) ([]models.ProductionEntry, error) {
	var result []models.ProductionEntry
	if err := c.do(c.request(ctx).SetResult(&result), http.MethodGet, "/production/entries", false); err != nil {
		return nil, fmt.Errorf("list all entries: %w", err)
	}
	if err := checkEntriesShape(result); err != nil {
		return nil, fmt.Errorf("list all entries: %w", err)
	}
	return result, nil
}

func (c *APIClient) ListEntriesByDateRange(ctx context.Context, q models.DateRangeQuery) ([]models.ProductionEntry, error) {
	params := map[string]string{
		"startDate": q.StartDate,
		"endDate":   q.EndDate,
		"filterBy":  q.FilterBy,
	}
	if params["filterBy"] == "" {
		params["filterBy"] = models.FilterByDate
	}
	if q.StartTime != "" {
		params["startTime"] = q.StartTime
	}
	if q.EndTime != "" {
		params["endTime"] = q.EndTime
	}

	var result []models.ProductionEntry
	req := c.request(ctx).SetQueryParams(params).SetResult(&result)
	if err := c.do(req, http.MethodGet, "/production/entries/date-range", false); err != nil {
		return nil, fmt.Errorf("list entries by date range: %w", err)
	}
	if err := checkEntriesShape(result); err != nil {
		return nil, fmt.Errorf("list entries by date range: %w", err)
	}
	return result, nil
}

func (c *APIClient) CheckEditability(ctx context.Context, id int) (*models.EditabilityCheck, error) {
	var raw map[string]json.RawMessage
	if err := c.do(c.request(ctx).SetResult(&raw), http.MethodGet, entryPath(id)+"/editability", false); err != nil {
		return nil, fmt.Errorf("check editability of entry %d: %w", id, err)
	}
	if _, ok := raw["canEdit"]; !ok {
		return nil, fmt.Errorf("check editability of entry %d: canEdit missing: %w", id, models.ErrMalformedResponse)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("check editability of entry %d: %w", id, err)
	}
	result := new(models.EditabilityCheck)
	if err := json.Unmarshal(encoded, result); err != nil {
		return nil, fmt.Errorf("check editability of entry %d: %v: %w", id, err, models.ErrMalformedResponse)
	}
	return result, nil
}

func (c *APIClient) CurrentSummary(ctx context.Context) (*models.ProductionSummary, error) {
	result := new(models.ProductionSummary)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, "/production/summary", false); err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return result, nil
}

func (c *APIClient) CalculateSummary(ctx context.Context) (*models.ProductionSummary, error) {
	result := new(models.ProductionSummary)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodPost, "/production/summary/calculate", false); err != nil {
		return nil, fmt.Errorf("calculate summary: %w", err)
	}
	return result, nil
}

func (c *APIClient) Statistics(ctx context.Context) (*models.ProductionStatistics, error) {
	result := new(models.ProductionStatistics)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, "/production/statistics", false); err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return result, nil
}

func (c *APIClient) Machines(ctx context.Context) ([]string, error) {
	var result []string
	if err := c.do(c.request(ctx).SetResult(&result), http.MethodGet, "/production/machines", false); err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return result, nil
}

func (c *APIClient) EntriesSummary(ctx context.Context) ([]models.EntrySummary, error) {
	var result []models.EntrySummary
	if err := c.do(c.request(ctx).SetResult(&result), http.MethodGet, "/production/entries/summary", false); err != nil {
		return nil, fmt.Errorf("list entries summary: %w", err)
	}
	return result, nil
}

func (c *APIClient) DownloadExcel(ctx context.Context) ([]byte, error) {
	req := c.request(ctx).SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	resp, err := c.execute(req, http.MethodGet, "/production/excel/download", false)
	if err != nil {
		return nil, fmt.Errorf("download excel: %w", err)
	}
	return resp.Body(), nil
}

func (c *APIClient) ExcelPath(ctx context.Context) (string, error) {
	result := new(models.ExcelPathResponse)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, "/production/excel/path", false); err != nil {
		return "", fmt.Errorf("get excel path: %w", err)
	}
	return result.Path, nil
}

// PhotoURL resolves a stored photo path to a URL on the backend host.
func (c *APIClient) PhotoURL(photoPath string) string {
	if strings.HasPrefix(photoPath, "/uploads/") {
		return c.origin + photoPath
	}
	return c.origin + "/uploads/production-photos/" + photoPath
}

func (c *APIClient) request(ctx context.Context) *resty.Request {
	return c.httpClient.R().SetContext(ctx).SetError(new(apiError))
}

func (c *APIClient) multipart(ctx context.Context, fields map[string]string, photo *models.Photo) *resty.Request {
	req := c.request(ctx).SetMultipartFormData(fields)
	if photo != nil && photo.Reader != nil {
		req.SetFileReader("photo", photo.Filename, photo.Reader)
	}
	return req
}

// do executes req and classifies failures. editPath marks the update call,
// whose 403/409/423 answers mean the edit window has closed.
func (c *APIClient) do(req *resty.Request, method, path string, editPath bool) error {
	_, err := c.execute(req, method, path, editPath)
	return err
}

func (c *APIClient) execute(req *resty.Request, method, path string, editPath bool) (*resty.Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		if resp != nil && resp.StatusCode() > 0 && resp.StatusCode() < http.StatusBadRequest {
			return resp, fmt.Errorf("%v: %w", err, models.ErrMalformedResponse)
		}
		if errors.Is(err, context.Canceled) {
			return resp, err
		}
		return resp, fmt.Errorf("%v: %w", err, models.ErrBackendUnavailable)
	}

	status := resp.StatusCode()
	if status < http.StatusBadRequest {
		// resty only decodes JSON bodies; anything else would leave the result zero.
		if ct := resp.Header().Get("Content-Type"); req.Result != nil && !resty.IsJSONType(ct) {
			return resp, fmt.Errorf("status %d with content type %q: %w", status, ct, models.ErrMalformedResponse)
		}
		return resp, nil
	}

	apiErr, _ := resp.Error().(*apiError)
	message := apiErr.text()
	if message == "" && !strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json") {
		message = strings.TrimSpace(resp.String())
	}

	switch {
	case editPath && (status == http.StatusForbidden || status == http.StatusConflict || status == http.StatusLocked):
		if message == "" {
			message = models.ErrEditWindowExpired.Error()
		}
		return resp, &models.ExpiredError{Message: message}
	case status == http.StatusNotFound:
		return resp, &models.BackendError{Status: status, Message: message, Kind: models.ErrNotFound}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return resp, &models.BackendError{Status: status, Message: message, Kind: models.ErrValidation}
	case status >= http.StatusInternalServerError:
		return resp, &models.BackendError{Status: status, Message: message, Kind: models.ErrBackendUnavailable}
	default:
		return resp, &models.BackendError{Status: status, Message: message}
	}
}

func checkEntryShape(e *models.ProductionEntry) error {
	if e == nil || e.ID <= 0 {
		return fmt.Errorf("entry without id: %w", models.ErrMalformedResponse)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("entry %d without createdAt: %w", e.ID, models.ErrMalformedResponse)
	}
	return nil
}

func checkEntriesShape(items []models.ProductionEntry) error {
	for i := range items {
		if err := checkEntryShape(&items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func entryPath(id int) string {
	return "/production/entries/" + strconv.Itoa(id)
}

func filterParams(f models.EntryFilter) map[string]string {
	page := f.Page
	if page <= 0 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = 10
	}
	params := map[string]string{
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(size),
	}
	if f.MachineNo != "" {
		params["machineNo"] = f.MachineNo
	}
	if f.Shift > 0 {
		params["shift"] = strconv.Itoa(f.Shift)
	}
	if f.StartDate != "" {
		params["startDate"] = f.StartDate
	}
	if f.EndDate != "" {
		params["endDate"] = f.EndDate
	}
	return params
}
