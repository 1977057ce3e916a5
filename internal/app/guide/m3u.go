package guide

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
)

// M3UItem is one channel entry in the flat channel list.
type M3UItem struct {
	Name  string
	TvgID string
	Group string
	URL   string
}

// BuildM3U maps a schedule's channels to M3U items whose stream URLs
// point back at the serving host.
func BuildM3U(s *Schedule, baseURL string) []M3UItem {
	items := make([]M3UItem, 0, len(s.Channels))
	for _, cg := range s.Channels {
		items = append(items, M3UItem{
			Name:  cg.Name,
			TvgID: cg.ID,
			Group: "retrocast",
			URL:   baseURL + "/stream/" + url.PathEscape(cg.Name),
		})
	}
	return items
}

// WriteM3U writes the items as an extended M3U playlist.
func WriteM3U(w io.Writer, items []M3UItem) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		buf.WriteString(fmt.Sprintf(
			`#EXTINF:-1 tvg-id="%s" tvg-name="%s" group-title="%s",%s`+"\n",
			it.TvgID, it.Name, it.Group, it.Name,
		))
		buf.WriteString(it.URL + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}
