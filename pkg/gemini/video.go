package gemini

import (
	"context"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"github.com/vibelab/vibecard/pkg/vibe"
)

type videoJob struct {
	op *genai.GenerateVideosOperation
}

func (j *videoJob) Name() string { return j.op.Name }

// SubmitVideoJob starts a Veo generation as a long-running operation.
func (c *Client) SubmitVideoJob(ctx context.Context, prompt string) (vibe.VideoJob, error) {
	op, err := c.genai.Models.GenerateVideos(ctx, c.cfg.VideoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, wrapErr("gemini: submit video", err)
	}
	return &videoJob{op: op}, nil
}

// PollVideoJob refreshes the operation. Once done, the returned URI is
// the download reference with the API key attached as the short-lived
// access credential the endpoint requires.
func (c *Client) PollVideoJob(ctx context.Context, job vibe.VideoJob) (vibe.VideoPoll, error) {
	vj, ok := job.(*videoJob)
	if !ok {
		return vibe.VideoPoll{}, &vibe.ProviderError{Op: "gemini: poll video", Message: "foreign job handle"}
	}

	op, err := c.genai.Operations.GetVideosOperation(ctx, vj.op, nil)
	if err != nil {
		return vibe.VideoPoll{}, wrapErr("gemini: poll video", err)
	}
	vj.op = op

	if !op.Done {
		return vibe.VideoPoll{}, nil
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0].Video == nil || op.Response.GeneratedVideos[0].Video.URI == "" {
		return vibe.VideoPoll{}, &vibe.ProviderError{Op: "gemini: poll video", Message: "operation finished without a video"}
	}
	uri := op.Response.GeneratedVideos[0].Video.URI
	return vibe.VideoPoll{Done: true, URI: signURI(uri, c.cfg.APIKey)}, nil
}

// signURI appends the API key to a video download URI.
func signURI(uri, key string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + url.QueryEscape(key)
}
