package engine

// EncodingProfile is one named ProRes configuration tuple: the ffmpeg
// codec/profile-index/vendor/pix_fmt quadruple needed to drive prores_ks.
type EncodingProfile struct {
	Label   string
	Codec   string
	Profile int
	Vendor  string
	PixFmt  string
}

// defaultFFArgs mirrors encodingprofiles.py's default_ffargs: every profile
// starts from this and overrides only what differs.
var defaultFFArgs = EncodingProfile{
	Codec:  "prores_ks",
	Vendor: "ap10",
	PixFmt: "yuv422p10",
}

func proresProfile(label string, profile int, pixFmtOverride string) EncodingProfile {
	p := defaultFFArgs
	p.Label = label
	p.Profile = profile
	if pixFmtOverride != "" {
		p.PixFmt = pixFmtOverride
	}
	return p
}

// EncodingProfiles is the static profile table from §6.
var EncodingProfiles = map[string]EncodingProfile{
	"prores_422_proxy": proresProfile("ProRes 422 Proxy", 0, ""),
	"prores_422_lt":    proresProfile("ProRes 422 LT", 1, ""),
	"prores_422":       proresProfile("ProRes 422", 2, ""),
	"prores_422_hq":    proresProfile("ProRes 422 HQ", 3, ""),
	"prores_4444":      proresProfile("ProRes 4444", 4, "yuva444p10"),
	"prores_4444_xq":   proresProfile("ProRes 4444 XQ", 5, "yuva444p10"),
}

// FramerateName is one named framerate preset.
type FramerateName struct {
	Label string
	Rate  Rational
}

// Framerates is the static preset table from §6.
var Framerates = map[string]FramerateName{
	"fps_23_98": {"23.98 fps", Rational{24000, 1001}},
	"fps_24":    {"24 fps", Rational{24, 1}},
	"fps_25":    {"25 fps", Rational{25, 1}},
	"fps_30":    {"30 fps", Rational{30, 1}},
	"fps_60":    {"60 fps", Rational{60, 1}},
}
