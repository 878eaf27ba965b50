package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/krafity/krafity/internal/prompts"
)

// VertexConfig holds configuration for the Vertex AI provider client.
type VertexConfig struct {
	BaseURL     string
	APIKey      string
	Project     string
	Location    string
	VideoModel  string
	VisionModel string
	Timeout     time.Duration
}

// VertexProvider implements Provider against the Vertex AI REST API:
// generateContent for image inspection and cleanup, predictLongRunning
// plus fetchPredictOperation for video generation.
type VertexProvider struct {
	client      *resty.Client
	modelPath   string
	videoModel  string
	visionModel string
}

// NewVertexProvider creates a new Vertex AI provider client.
func NewVertexProvider(cfg *VertexConfig) *VertexProvider {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://aiplatform.googleapis.com/v1"
	}

	modelPath := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models",
		baseURL, cfg.Project, cfg.Location)

	return &VertexProvider{
		client:      client,
		modelPath:   modelPath,
		videoModel:  cfg.VideoModel,
		visionModel: cfg.VisionModel,
	}
}

// Vertex generateContent request/response structures.
type vertexContentRequest struct {
	Contents          []vertexContent `json:"contents"`
	SystemInstruction *vertexContent  `json:"systemInstruction,omitempty"`
}

type vertexContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *vertexInlineData `json:"inlineData,omitempty"`
}

type vertexInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type vertexContentResponse struct {
	Candidates []struct {
		Content vertexContent `json:"content"`
	} `json:"candidates"`
	Error *vertexError `json:"error,omitempty"`
}

type vertexError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Vertex predictLongRunning request/response structures.
type vertexPredictRequest struct {
	Instances  []vertexVideoInstance `json:"instances"`
	Parameters vertexVideoParameters `json:"parameters"`
}

type vertexVideoInstance struct {
	Prompt    string            `json:"prompt"`
	Image     *vertexImageInput `json:"image,omitempty"`
	LastFrame *vertexImageInput `json:"lastFrame,omitempty"`
}

type vertexImageInput struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type vertexVideoParameters struct {
	DurationSeconds int `json:"durationSeconds"`
	SampleCount     int `json:"sampleCount"`
}

type vertexOperationResponse struct {
	Name     string       `json:"name"`
	Done     bool         `json:"done"`
	Error    *vertexError `json:"error,omitempty"`
	Response *struct {
		Videos []struct {
			GCSURI   string `json:"gcsUri"`
			MIMEType string `json:"mimeType"`
		} `json:"videos"`
	} `json:"response,omitempty"`
}

type vertexFetchOperationRequest struct {
	OperationName string `json:"operationName"`
}

// Describe generates an annotation description for an image.
func (p *VertexProvider) Describe(ctx context.Context, image []byte, mimeType string) (string, error) {
	return p.generateText(ctx, image, mimeType, prompts.AnnotationSystemPrompt, prompts.AnnotationUserPrompt)
}

func (p *VertexProvider) generateText(ctx context.Context, image []byte, mimeType, systemPrompt, userPrompt string) (string, error) {
	req := &vertexContentRequest{
		Contents: []vertexContent{
			{
				Role: "user",
				Parts: []vertexPart{
					{Text: userPrompt},
					{InlineData: &vertexInlineData{
						MIMEType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &vertexContent{
			Parts: []vertexPart{{Text: systemPrompt}},
		}
	}

	var resp vertexContentResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(fmt.Sprintf("%s/%s:generateContent", p.modelPath, p.visionModel))
	if err != nil {
		return "", fmt.Errorf("failed to call vision API: %w", err)
	}
	if err := checkResponse(httpResp, resp.Error); err != nil {
		return "", fmt.Errorf("vision API: %w", err)
	}

	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text in vision API response (status: %d)", httpResp.StatusCode())
}

// Cleanup returns a cleaned version of an annotated image.
func (p *VertexProvider) Cleanup(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, error) {
	req := &vertexContentRequest{
		Contents: []vertexContent{
			{
				Role: "user",
				Parts: []vertexPart{
					{Text: instruction},
					{InlineData: &vertexInlineData{
						MIMEType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
	}

	var resp vertexContentResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(fmt.Sprintf("%s/%s:generateContent", p.modelPath, p.visionModel))
	if err != nil {
		return nil, fmt.Errorf("failed to call cleanup API: %w", err)
	}
	if err := checkResponse(httpResp, resp.Error); err != nil {
		return nil, fmt.Errorf("cleanup API: %w", err)
	}

	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode cleaned image: %w", err)
				}
				return decoded, nil
			}
		}
	}
	return nil, fmt.Errorf("no image in cleanup API response (status: %d)", httpResp.StatusCode())
}

// Generate dispatches a long-running video generation request.
func (p *VertexProvider) Generate(ctx context.Context, genReq *GenerateRequest) (string, error) {
	instance := vertexVideoInstance{
		Prompt: genReq.Prompt,
	}
	if len(genReq.PrimaryFrame) > 0 {
		instance.Image = &vertexImageInput{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(genReq.PrimaryFrame),
			MIMEType:           genReq.PrimaryMIMEType,
		}
	}
	if len(genReq.SecondaryFrame) > 0 {
		instance.LastFrame = &vertexImageInput{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(genReq.SecondaryFrame),
			MIMEType:           genReq.SecondaryMIMEType,
		}
	}

	req := &vertexPredictRequest{
		Instances: []vertexVideoInstance{instance},
		Parameters: vertexVideoParameters{
			DurationSeconds: genReq.DurationSeconds,
			SampleCount:     1,
		},
	}

	var resp vertexOperationResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(fmt.Sprintf("%s/%s:predictLongRunning", p.modelPath, p.videoModel))
	if err != nil {
		return "", fmt.Errorf("failed to call generation API: %w", err)
	}
	if err := checkResponse(httpResp, resp.Error); err != nil {
		return "", fmt.Errorf("generation API: %w", err)
	}
	if resp.Name == "" {
		return "", fmt.Errorf("no operation name in generation API response (status: %d)", httpResp.StatusCode())
	}

	return resp.Name, nil
}

// Poll queries a long-running generation operation by name.
func (p *VertexProvider) Poll(ctx context.Context, operationRef string) (*PollResult, error) {
	req := &vertexFetchOperationRequest{OperationName: operationRef}

	var resp vertexOperationResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(fmt.Sprintf("%s/%s:fetchPredictOperation", p.modelPath, p.videoModel))
	if err != nil {
		return nil, fmt.Errorf("failed to poll operation: %w", err)
	}
	if err := checkResponse(httpResp, resp.Error); err != nil {
		return nil, fmt.Errorf("operation poll: %w", err)
	}

	if !resp.Done {
		return &PollResult{Done: false}, nil
	}
	if resp.Response == nil || len(resp.Response.Videos) == 0 {
		return nil, fmt.Errorf("operation %s completed without a video result", operationRef)
	}

	return &PollResult{
		Done:      true,
		ResultURI: resp.Response.Videos[0].GCSURI,
	}, nil
}

// checkResponse maps HTTP and API-level failures to errors, including
// the response body for diagnosis.
func checkResponse(httpResp *resty.Response, apiErr *vertexError) error {
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if apiErr != nil {
			return fmt.Errorf("HTTP %d: %s", httpResp.StatusCode(), apiErr.Message)
		}
		return fmt.Errorf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if apiErr != nil {
		return fmt.Errorf("%s: %s", apiErr.Status, apiErr.Message)
	}
	return nil
}
