package guide

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// XMLTV document shapes.
type TV struct {
	XMLName   xml.Name       `xml:"tv"`
	Generator string         `xml:"generator-info-name,attr,omitempty"`
	Channels  []XMLTVChannel `xml:"channel"`
	Programs  []Programme    `xml:"programme"`
}

type XMLTVChannel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

type Programme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    Title  `xml:"title"`
	Desc     string `xml:"desc,omitempty"`
	Category string `xml:"category,omitempty"`
}

type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// RenderXMLTV renders a schedule as an XMLTV programme-guide document.
func RenderXMLTV(s *Schedule) ([]byte, error) {
	tv := TV{Generator: "retrocast"}

	for _, cg := range s.Channels {
		tv.Channels = append(tv.Channels, XMLTVChannel{
			ID:          cg.ID,
			DisplayName: []string{cg.Name},
		})
		category := categoryFor(cg.Name)
		for _, e := range cg.Entries {
			tv.Programs = append(tv.Programs, Programme{
				Start:    formatXMLTVTime(e.Start),
				Stop:     formatXMLTVTime(e.Stop),
				Channel:  e.ChannelID,
				Title:    Title{Lang: "en", Value: e.Title},
				Desc:     e.Description,
				Category: category,
			})
		}
	}

	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal xmltv")
	}
	return append([]byte(xmlHeader), out...), nil
}

// formatXMLTVTime formats a time in XMLTV format: YYYYMMDDHHMMSS +ZZZZ.
func formatXMLTVTime(t time.Time) string {
	return t.Format("20060102150405 -0700")
}

func categoryFor(channelName string) string {
	if strings.Contains(strings.ToLower(channelName), "commercial") {
		return "Commercial"
	}
	return "Entertainment"
}
