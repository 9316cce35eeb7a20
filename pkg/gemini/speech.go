package gemini

import (
	"bytes"
	"context"
	"encoding/binary"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/vibelab/vibecard/pkg/vibe"
)

// GenerateSpeech narrates text with a prebuilt voice. The API returns
// raw little-endian PCM, which gets a RIFF header so browsers and audio
// players accept it as-is.
func (c *Client) GenerateSpeech(ctx context.Context, text, voice string) (vibe.Blob, error) {
	if voice == "" {
		voice = c.cfg.Voice
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.cfg.SpeechModel, contents, cfg)
	if err != nil {
		return vibe.Blob{}, wrapErr("gemini: generate speech", err)
	}

	data, mime := inlineAudio(resp)
	if len(data) == 0 {
		return vibe.Blob{}, &vibe.ProviderError{Op: "gemini: generate speech", Message: "no audio payload in response"}
	}
	if isRawPCM(mime) {
		return vibe.Blob{MIMEType: "audio/wav", Data: wavFromPCM(data, rateFromMIME(mime))}, nil
	}
	return vibe.Blob{MIMEType: mime, Data: data}, nil
}

func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ""
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data, p.InlineData.MIMEType
		}
	}
	return nil, ""
}

func isRawPCM(mime string) bool {
	return strings.HasPrefix(mime, "audio/L16") || strings.Contains(mime, "codec=pcm") || mime == ""
}

// rateFromMIME extracts the sample rate from a MIME type such as
// "audio/L16;codec=pcm;rate=24000". Defaults to 24000.
func rateFromMIME(mime string) int {
	for _, part := range strings.Split(mime, ";") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "rate="); ok {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return 24000
}

// wavFromPCM frames 16-bit mono little-endian PCM as a WAV file.
func wavFromPCM(pcm []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(pcm))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))            // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))    // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))  // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))             // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))            // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}
