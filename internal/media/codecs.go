package media

import (
	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
)

// routerCodecs is the codec menu every router is created with. Browsers
// negotiate a subset of it through the router RTP capabilities.
func routerCodecs() []*mediasoup.RtpCodecCapability {
	return []*mediasoup.RtpCodecCapability{
		{
			Kind:      mediasoup.MediaKindAudio,
			MimeType:  "audio/opus",
			ClockRate: 48000,
			Channels:  2,
		},
		{
			Kind:      mediasoup.MediaKindVideo,
			MimeType:  "video/VP8",
			ClockRate: 90000,
			RtcpFeedback: []*mediasoup.RtcpFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
				{Type: "goog-remb"},
				{Type: "transport-cc"},
			},
		},
		{
			Kind:      mediasoup.MediaKindVideo,
			MimeType:  "video/H264",
			ClockRate: 90000,
			Parameters: mediasoup.RtpCodecSpecificParameters{
				PacketizationMode:     1,
				ProfileLevelId:        "42e01f",
				LevelAsymmetryAllowed: 1,
			},
			RtcpFeedback: []*mediasoup.RtcpFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
				{Type: "goog-remb"},
				{Type: "transport-cc"},
			},
		},
		{
			Kind:      mediasoup.MediaKindVideo,
			MimeType:  "video/VP9",
			ClockRate: 90000,
			RtcpFeedback: []*mediasoup.RtcpFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
				{Type: "goog-remb"},
				{Type: "transport-cc"},
			},
		},
	}
}
