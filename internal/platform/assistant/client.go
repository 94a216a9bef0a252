package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one turn in a model conversation.
type Message struct {
	Role             string            // "user" or "model"
	Text             string
	FunctionCall     *FunctionCall     // model asked for a tool
	FunctionResponse *FunctionResponse // we answer a tool call
}

type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type FunctionResponse struct {
	Name    string      `json:"name"`
	Content interface{} `json:"content"`
}

type GenerateRequest struct {
	System   string
	Messages []Message
	Tools    []Tool
}

// GenerateResponse carries either final text or a single tool request.
type GenerateResponse struct {
	Text         string
	FunctionCall *FunctionCall
}

// ModelClient is the boundary to the language model API.
type ModelClient interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// HTTPClient talks to a generateContent-style REST endpoint.
type HTTPClient struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

func NewHTTPClient(endpoint, model, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Wire format of the generateContent API.

type wirePart struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *wireFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *wireFunctionResp `json:"functionResponse,omitempty"`
}

type wireFunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

type wireFunctionResp struct {
	Name     string      `json:"name"`
	Response interface{} `json:"response"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireFunctionDecl struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *wireSchema `json:"parameters,omitempty"`
}

type wireSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]wireProperty `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`
}

type wireProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type wireRequest struct {
	SystemInstruction *wireContent `json:"systemInstruction,omitempty"`
	Contents          []wireContent `json:"contents"`
	Tools             []struct {
		FunctionDeclarations []wireFunctionDecl `json:"functionDeclarations"`
	} `json:"tools,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body := wireRequest{}
	if req.System != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		content := wireContent{Role: m.Role}
		switch {
		case m.FunctionCall != nil:
			content.Parts = []wirePart{{FunctionCall: &wireFunctionCall{
				Name: m.FunctionCall.Name, Args: m.FunctionCall.Args}}}
		case m.FunctionResponse != nil:
			content.Parts = []wirePart{{FunctionResponse: &wireFunctionResp{
				Name: m.FunctionResponse.Name, Response: m.FunctionResponse.Content}}}
		default:
			content.Parts = []wirePart{{Text: m.Text}}
		}
		body.Contents = append(body.Contents, content)
	}
	if len(req.Tools) > 0 {
		decls := make([]wireFunctionDecl, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, toFunctionDecl(t))
		}
		body.Tools = append(body.Tools, struct {
			FunctionDeclarations []wireFunctionDecl `json:"functionDeclarations"`
		}{FunctionDeclarations: decls})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var decoded wireResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("model error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 {
		return nil, fmt.Errorf("model returned no candidates")
	}

	out := &GenerateResponse{}
	for _, part := range decoded.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			out.FunctionCall = &FunctionCall{Name: part.FunctionCall.Name, Args: part.FunctionCall.Args}
			break
		}
		out.Text += part.Text
	}
	return out, nil
}

func toFunctionDecl(t Tool) wireFunctionDecl {
	decl := wireFunctionDecl{Name: t.Name, Description: t.Description}
	if len(t.Params) == 0 {
		return decl
	}
	schema := &wireSchema{Type: "object", Properties: make(map[string]wireProperty)}
	for _, p := range t.Params {
		schema.Properties[p.Name] = wireProperty{Type: p.Type, Description: p.Description}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	decl.Parameters = schema
	return decl
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
