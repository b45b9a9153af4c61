package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"staydesk/internal/shared/config"
	"staydesk/internal/shared/constants"
	"staydesk/pkg/cache"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// StepResult is one smoke test step
type StepResult struct {
	Step         string        `json:"step"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// SmokeSuite walks one booking through its lifecycle against a running server
type SmokeSuite struct {
	RootURL string
	BaseURL string
	client  *http.Client
	redis   *redis.Client
	Results []StepResult
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	root := "http://localhost:" + cfg.Port
	suite := &SmokeSuite{
		RootURL: root,
		BaseURL: root + cfg.GetAPIBasePath(),
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("🧪 Starting staydesk smoke test...")
	fmt.Println("==================================")

	ctx := context.Background()
	rdb, err := cache.Connect(ctx, cache.NewConfigFromRedisConfig(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Addr:     cfg.Redis.Addr,
	}))
	if err != nil {
		fmt.Printf("⚠️  Redis unavailable, dedupe checks skipped: %v\n", err)
	} else {
		defer rdb.Close()
		suite.redis = rdb
		if err := probeRedis(ctx, rdb); err != nil {
			log.Fatalf("❌ Redis probe failed: %v", err)
		}
		fmt.Println("✅ Redis probe: OK")
	}

	if err := suite.Run(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
	}
	suite.generateReport()
}

func probeRedis(ctx context.Context, rdb *redis.Client) error {
	svc := cache.NewService(rdb)
	key := constants.CACHE_KEY_HEALTH_PROBE + ":" + uuid.NewString()
	if _, err := svc.SetNX(ctx, key, time.Now().Unix(), constants.TTL_HEALTH_PROBE); err != nil {
		return err
	}
	if !svc.Exists(ctx, key) {
		return fmt.Errorf("probe key %s was not stored", key)
	}
	return svc.Delete(ctx, key)
}

// Run executes the lifecycle scenario with the seeded accounts
func (s *SmokeSuite) Run(ctx context.Context) error {
	if _, err := s.call(ctx, "health", http.MethodGet, s.RootURL+"/health", "", nil, nil); err != nil {
		return err
	}

	guestToken, err := s.login(ctx, "grace@example.com")
	if err != nil {
		return err
	}
	staffToken, err := s.login(ctx, "desk@staydesk.local")
	if err != nil {
		return err
	}

	checkIn := time.Now().UTC().AddDate(0, 0, 21).Truncate(24 * time.Hour)
	var booking struct {
		ID string `json:"id"`
	}
	if _, err := s.call(ctx, "create booking", http.MethodPost, s.BaseURL+"/bookings", guestToken, map[string]interface{}{
		"property_id":  uuid.NewString(),
		"guest_email":  "grace@example.com",
		"guest_name":   "Grace Hopper",
		"room_ids":     []string{uuid.NewString()},
		"check_in":     checkIn,
		"check_out":    checkIn.AddDate(0, 0, 2),
		"total_amount": "240.00",
		"currency":     "USD",
	}, &booking); err != nil {
		return err
	}
	bookingPath := s.BaseURL + "/bookings/" + booking.ID

	steps := []struct {
		name  string
		path  string
		token string
		body  interface{}
	}{
		{"record payment", bookingPath + "/payments", staffToken, map[string]string{"amount": "240.00"}},
		{"confirm", bookingPath + "/transitions", staffToken, map[string]string{"status": "confirmed"}},
	}
	for _, step := range steps {
		if _, err := s.call(ctx, step.name, http.MethodPost, step.path, step.token, step.body, nil); err != nil {
			return err
		}
	}

	var eligibility struct {
		MaxRefundable string `json:"max_refundable"`
	}
	if _, err := s.call(ctx, "refund eligibility", http.MethodGet, bookingPath+"/refund-eligibility", guestToken, nil, &eligibility); err != nil {
		return err
	}

	var refund struct {
		ID string `json:"id"`
	}
	if _, err := s.call(ctx, "request refund", http.MethodPost, bookingPath+"/refunds", guestToken, map[string]string{
		"amount": eligibility.MaxRefundable,
		"reason": "change of plans",
	}, &refund); err != nil {
		return err
	}
	if _, err := s.call(ctx, "approve refund", http.MethodPost, s.BaseURL+"/refunds/"+refund.ID+"/approve", staffToken, nil, nil); err != nil {
		return err
	}
	if _, err := s.call(ctx, "cancel with refund", http.MethodPost, bookingPath+"/transitions", guestToken, map[string]string{
		"status":            "cancelled",
		"reason":            "change of plans",
		"refund_request_id": refund.ID,
	}, nil); err != nil {
		return err
	}

	s.checkDedupe(ctx, booking.ID)
	return nil
}

func (s *SmokeSuite) login(ctx context.Context, email string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if _, err := s.call(ctx, "login "+email, http.MethodPost, s.BaseURL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "staydesk123",
	}, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// checkDedupe reports the notification dedupe keys written for the booking
func (s *SmokeSuite) checkDedupe(ctx context.Context, bookingID string) {
	if s.redis == nil {
		return
	}

	// the consumer runs asynchronously
	time.Sleep(3 * time.Second)

	pattern := constants.CACHE_KEY_NOTIFICATION_DEDUPE + ":" + bookingID + ":*"
	keys, err := s.redis.Keys(ctx, pattern).Result()
	if err != nil {
		fmt.Printf("   ⚠️  dedupe lookup failed: %v\n", err)
		return
	}
	fmt.Printf("\n📬 Notifications recorded for %s: %d\n", bookingID, len(keys))
	for _, key := range keys {
		fmt.Printf("   • %s\n", key)
	}
}

func (s *SmokeSuite) call(ctx context.Context, step, method, url, token string, body, dest interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	result := StepResult{Step: step, ResponseTime: time.Since(start)}
	if err != nil {
		result.Error = err.Error()
		s.record(result)
		return 0, fmt.Errorf("%s: %w", step, err)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err.Error()
		s.record(result)
		return resp.StatusCode, fmt.Errorf("%s: %w", step, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !result.Success {
		result.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, env.Message)
		s.record(result)
		return resp.StatusCode, fmt.Errorf("%s: %s", step, result.Error)
	}
	s.record(result)

	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return resp.StatusCode, fmt.Errorf("%s: failed to decode response: %w", step, err)
		}
	}
	return resp.StatusCode, nil
}

func (s *SmokeSuite) record(result StepResult) {
	s.Results = append(s.Results, result)

	statusIcon := "✅"
	if !result.Success {
		statusIcon = "❌"
	}
	fmt.Printf("   %s %-22s HTTP %d %v\n", statusIcon, result.Step, result.StatusCode, result.ResponseTime)
}

func (s *SmokeSuite) generateReport() {
	fmt.Println("\n📊 SMOKE TEST REPORT")
	fmt.Println("====================")

	successful := 0
	var total time.Duration
	for _, result := range s.Results {
		if result.Success {
			successful++
		}
		total += result.ResponseTime
	}

	fmt.Printf("Steps: %d\n", len(s.Results))
	fmt.Printf("Successful: %d\n", successful)
	if len(s.Results) > 0 {
		fmt.Printf("Average response time: %v\n", total/time.Duration(len(s.Results)))
	}
}
