package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// serpAPIEndpoint is the SerpApi Google engine endpoint.
const serpAPIEndpoint = "https://serpapi.com/search.json"

// SearchOnlineTool queries a web search engine (SerpApi). Missing
// credentials yield an {items: [], error: ...} result, never an exception.
type SearchOnlineTool struct {
	// Endpoint overrides the SerpApi URL (tests).
	Endpoint string
	// Client overrides the HTTP client.
	Client *http.Client
}

// Verify interface implementation at compile time.
var _ Tool = (*SearchOnlineTool)(nil)

// Spec implements Tool.
func (t *SearchOnlineTool) Spec() Spec {
	return Spec{
		Name: "search_online",
		Description: "网页搜索引擎（SerpApi）。当你需要回答时事、事实，或你认为知识库信息不足时使用。" +
			"当用户问题包含'近期'，'最近','最新','现在','当前','当下'等时间词时，考虑使用该工具。",
	}
}

// PromptUsage implements Tool.
func (t *SearchOnlineTool) PromptUsage() string {
	return "Action Input 必须是 JSON 对象，字段如下：\n" +
		"{\n" +
		"  \"query\": \"搜索关键词（必填）\",\n" +
		"  \"topk\": 5\n" +
		"}\n"
}

// NormalizeArguments implements Tool.
func (t *SearchOnlineTool) NormalizeArguments(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	return args, nil
}

// Run implements Tool.
func (t *SearchOnlineTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return nil, fmt.Errorf("search_online.query 不能为空")
	}
	topk := intArg(args, "topk", 5)
	if topk < 1 {
		topk = 1
	}

	failure := func(msg string) map[string]any {
		return map[string]any{"query": query, "topk": topk, "items": []any{}, "error": msg}
	}

	apiKey := readSerpAPIKey()
	if apiKey == "" {
		return failure("SERPAPI_API_KEY 或 SERPAPI_KEY 未配置"), nil
	}

	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = serpAPIEndpoint
	}
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", apiKey)
	params.Set("num", strconv.Itoa(topk))

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return failure("SerpApi 调用失败：" + err.Error()), nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return failure("SerpApi 调用失败：" + err.Error()), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure("SerpApi 响应读取失败：" + err.Error()), nil
	}

	var data struct {
		Error          string `json:"error"`
		SearchMetadata struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"search_metadata"`
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return failure("SerpApi 响应解析失败：" + err.Error()), nil
	}
	if data.Error != "" {
		return failure(data.Error), nil
	}
	if strings.EqualFold(data.SearchMetadata.Status, "error") {
		msg := data.SearchMetadata.Error
		if msg == "" {
			msg = "SerpApi 返回错误"
		}
		return failure(msg), nil
	}

	items := make([]map[string]any, 0, topk)
	for i, r := range data.OrganicResults {
		if i >= topk {
			break
		}
		var parts []string
		if r.Title != "" {
			parts = append(parts, r.Title)
		}
		if r.Snippet != "" {
			parts = append(parts, r.Snippet)
		}
		items = append(items, map[string]any{
			"rank":  i + 1,
			"score": 0.0,
			"id":    "",
			"text":  strings.TrimSpace(strings.Join(parts, " | ")),
			"meta":  map[string]any{"url": r.Link, "source_path": "online"},
		})
	}

	if len(items) == 0 {
		return failure("未获取到搜索结果（可能是 key 无效/额度不足/网络问题）"), nil
	}
	return map[string]any{"query": query, "topk": topk, "items": items}, nil
}

// readSerpAPIKey reads the API key from the environment, falling back to a
// .env file in the working directory.
func readSerpAPIKey() string {
	for _, key := range []string{"SERPAPI_API_KEY", "SERPAPI_KEY"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	dotenv, err := godotenv.Read(".env")
	if err != nil {
		return ""
	}
	for _, key := range []string{"SERPAPI_API_KEY", "SERPAPI_KEY"} {
		if v := dotenv[key]; v != "" {
			return v
		}
	}
	return ""
}
