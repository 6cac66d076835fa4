package transcoder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// probeOutput mirrors the subset of `ffprobe -print_format json` output that
// the fetcher cares about. ffprobe emits numbers as JSON strings in the
// format section, so Duration stays a string until parsed.
type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbeOutput decodes raw ffprobe JSON into a MediaInfo. The first
// video stream wins; audio-only files come back with zero dimensions and an
// empty codec.
func parseProbeOutput(data []byte) (*MediaInfo, error) {
	var probed probeOutput
	if err := json.Unmarshal(data, &probed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{
		Container: primaryContainer(probed.Format.FormatName),
	}

	if probed.Format.Duration != "" {
		d, err := strconv.ParseFloat(probed.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q in ffprobe output: %w", probed.Format.Duration, err)
		}
		info.Duration = d
	}

	for _, s := range probed.Streams {
		if s.CodecType == "video" {
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}

	return info, nil
}

// primaryContainer maps ffprobe's format_name (a comma list of demuxer
// aliases like "mov,mp4,m4a,3gp,3g2,mj2") to a single container name.
func primaryContainer(formatName string) string {
	names := strings.Split(formatName, ",")

	// Prefer a name we classify; the alias list leads with the demuxer
	// family name, not the actual container.
	for _, name := range names {
		if compatibleContainers[name] {
			return name
		}
	}

	if len(names) > 0 {
		return names[0]
	}
	return formatName
}
