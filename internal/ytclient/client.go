package ytclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"watchwise/internal/model"
)

// VideoAPI defines the metadata-source methods the workflows use.
type VideoAPI interface {
	SearchVideos(ctx context.Context, query string, maxResults int) ([]string, error)
	VideoDetails(ctx context.Context, ids []string) ([]model.Video, error)
}

// HTTPClient is an API-key client for the YouTube Data API v3.
type HTTPClient struct {
	baseURL        string
	apiKey         string
	categoryID     string
	publishedAfter string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxAttempts    int
	baseBackoff    time.Duration
}

func NewHTTPClient(apiKey, categoryID, publishedAfter string) *HTTPClient {
	return &HTTPClient{
		baseURL:        "https://www.googleapis.com/youtube/v3",
		apiKey:         apiKey,
		categoryID:     categoryID,
		publishedAfter: publishedAfter,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		limiter:        newDefaultLimiter(),
		maxAttempts:    getEnvInt("YT_API_MAX_ATTEMPTS", 5),
		baseBackoff:    time.Duration(getEnvInt("YT_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// SearchVideos returns the video ids matching a query.
func (c *HTTPClient) SearchVideos(ctx context.Context, query string, maxResults int) ([]string, error) {
	if c.apiKey == "" {
		return nil, errors.New("missing YouTube API key")
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", query)
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(clamp(maxResults, 1, 50)))
	if c.categoryID != "" {
		q.Set("videoCategoryId", c.categoryID)
	}
	if c.publishedAfter != "" {
		q.Set("publishedAfter", c.publishedAfter)
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError("search", resp)
	}
	var raw struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw.Items))
	for _, it := range raw.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	return ids, nil
}

// VideoDetails fetches snippet, statistics, and duration for up to 50 ids.
func (c *HTTPClient) VideoDetails(ctx context.Context, ids []string) ([]model.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, errors.New("missing YouTube API key")
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("id", strings.Join(ids, ","))
	q.Set("part", "snippet,statistics,contentDetails")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos?"+q.Encode(), nil)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError("videos", resp)
	}
	var raw struct {
		Items []videoItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]model.Video, 0, len(raw.Items))
	for _, it := range raw.Items {
		out = append(out, it.toVideo())
	}
	return out, nil
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string    `json:"title"`
		Description  string    `json:"description"`
		PublishedAt  time.Time `json:"publishedAt"`
		ChannelTitle string    `json:"channelTitle"`
		CategoryID   string    `json:"categoryId"`
		Tags         []string  `json:"tags"`
		Thumbnails   struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

func (it videoItem) toVideo() model.Video {
	category, _ := strconv.Atoi(it.Snippet.CategoryID)
	return model.Video{
		ID:           it.ID,
		Title:        it.Snippet.Title,
		Description:  it.Snippet.Description,
		ChannelName:  it.Snippet.ChannelTitle,
		ViewCount:    parseCount(it.Statistics.ViewCount),
		LikeCount:    parseCount(it.Statistics.LikeCount),
		CommentCount: parseCount(it.Statistics.CommentCount),
		Duration:     it.ContentDetails.Duration,
		PublishedAt:  it.Snippet.PublishedAt,
		URL:          "https://www.youtube.com/watch?v=" + it.ID,
		ThumbnailURL: it.Snippet.Thumbnails.High.URL,
		Tags:         it.Snippet.Tags,
		CategoryID:   category,
	}
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func apiError(endpoint string, resp *http.Response) error {
	var raw struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	if raw.Error.Message != "" {
		return fmt.Errorf("youtube %s api status %d: %s", endpoint, resp.StatusCode, raw.Error.Message)
	}
	return fmt.Errorf("youtube %s api status %d", endpoint, resp.StatusCode)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}
