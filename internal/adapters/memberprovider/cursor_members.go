package memberprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leikvolle/seatwatch/internal/config"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/reporting"
	"github.com/leikvolle/seatwatch/internal/strutils"
)

const userAgent = "seatwatch (+https://github.com/leikvolle/seatwatch)"

type cursorMemberProvider struct {
	httpClient HttpClient
	apiKey     string
	baseURL    string
}

func NewCursorMemberProvider(httpClient HttpClient, apiKey, baseURL string) MemberProvider {
	return &cursorMemberProvider{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

type mockedMemberProvider struct{}

func (provider *mockedMemberProvider) TeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	return []domain.TeamMember{
		{Email: "dev1@example.com", Name: "Dev One", Role: "member"},
		{Email: "dev2@example.com", Name: "Dev Two", Role: "member"},
		{Email: "admin@example.com", Name: "Admin", Role: "owner"},
	}, nil
}

func NewCursorMemberProviderOrMock(conf config.Config, httpClient HttpClient) (MemberProvider, error) {
	if conf.CursorAPIKey() != "" {
		return NewCursorMemberProvider(httpClient, conf.CursorAPIKey(), conf.CursorAPIBaseURL()), nil
	}
	if conf.IsDevelopment() {
		return &mockedMemberProvider{}, nil
	}
	return nil, fmt.Errorf("missing Cursor API key in non-development environment")
}

type teamMembersResponse struct {
	TeamMembers []teamMemberEntry `json:"teamMembers"`
}

type teamMemberEntry struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (provider *cursorMemberProvider) TeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	logger := logging.FromContext(ctx)
	url := fmt.Sprintf("%s/teams/members", provider.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", provider.apiKey))

	requestStart := time.Now()
	resp, err := provider.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("failed to send request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read response body: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, err
	}

	logger.Info("cursor team members request completed", "url", url, "status", resp.StatusCode, "duration", time.Since(requestStart).String())

	return ParseTeamMembersResponse(ctx, data, resp.StatusCode)
}

func ParseTeamMembersResponse(ctx context.Context, data []byte, statusCode int) ([]domain.TeamMember, error) {
	if statusCode == 429 {
		return nil, fmt.Errorf("%w: rate limited by Cursor API", domain.ErrRatelimitExceeded)
	}
	if statusCode >= 500 {
		err := fmt.Errorf("%w: Cursor API returned status %d", domain.ErrTemporarilyUnavailable, statusCode)
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(data),
		})
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		err := fmt.Errorf("Cursor API returned unexpected status %d", statusCode)
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(data),
		})
		return nil, err
	}

	response := teamMembersResponse{}
	if err := json.Unmarshal(data, &response); err != nil {
		err := fmt.Errorf("%w: failed to parse Cursor API response: %w", domain.ErrTemporarilyUnavailable, err)
		reporting.Report(ctx, err, map[string]string{"data": string(data)})
		return nil, err
	}

	members := make([]domain.TeamMember, 0, len(response.TeamMembers))
	for _, entry := range response.TeamMembers {
		email := strutils.NormalizeEmail(entry.Email)
		if email == "" {
			logging.FromContext(ctx).Warn("skipping team member without email", "name", entry.Name)
			continue
		}
		members = append(members, domain.TeamMember{
			Email: email,
			Name:  strings.TrimSpace(entry.Name),
			Role:  strings.ToLower(strings.TrimSpace(entry.Role)),
		})
	}

	return members, nil
}
