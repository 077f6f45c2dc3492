// ABOUTME: Channel labels and flags for channel layouts
// ABOUTME: Mirrors the speaker labels platform layouts understand
package hal

import "fmt"

// ChannelLabel names the speaker a channel feeds
type ChannelLabel uint32

const (
	LabelUnknown ChannelLabel = 0xFFFFFFFF
	LabelUnused  ChannelLabel = 0

	LabelLeft                ChannelLabel = 1
	LabelRight               ChannelLabel = 2
	LabelCenter              ChannelLabel = 3
	LabelLFEScreen           ChannelLabel = 4
	LabelLeftSurround        ChannelLabel = 5
	LabelRightSurround       ChannelLabel = 6
	LabelLeftCenter          ChannelLabel = 7
	LabelRightCenter         ChannelLabel = 8
	LabelCenterSurround      ChannelLabel = 9
	LabelLeftSurroundDirect  ChannelLabel = 10
	LabelRightSurroundDirect ChannelLabel = 11
	LabelMono                ChannelLabel = 42
)

var labelNames = map[ChannelLabel]string{
	LabelUnknown:             "Unknown",
	LabelUnused:              "Unused",
	LabelLeft:                "Left",
	LabelRight:               "Right",
	LabelCenter:              "Center",
	LabelLFEScreen:           "LFEScreen",
	LabelLeftSurround:        "LeftSurround",
	LabelRightSurround:       "RightSurround",
	LabelLeftCenter:          "LeftCenter",
	LabelRightCenter:         "RightCenter",
	LabelCenterSurround:      "CenterSurround",
	LabelLeftSurroundDirect:  "LeftSurroundDirect",
	LabelRightSurroundDirect: "RightSurroundDirect",
	LabelMono:                "Mono",
}

func (l ChannelLabel) String() string {
	if name, ok := labelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("ChannelLabel(%d)", uint32(l))
}

// ChannelFlags qualify the coordinates of a ChannelDescription
type ChannelFlags uint32

const (
	ChannelFlagsAllOff      ChannelFlags = 0
	ChannelFlagsRectangular ChannelFlags = 1 << 0
	ChannelFlagsSpherical   ChannelFlags = 1 << 1
	ChannelFlagsMeters      ChannelFlags = 1 << 2
)
