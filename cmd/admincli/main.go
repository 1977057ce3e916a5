// Package main provides the library admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/mkrause/retrocast/internal/infra/config"
	"github.com/mkrause/retrocast/internal/infra/store"
)

var (
	app        = kingpin.New("retrocast-admin", "retrocast library admin client")
	configPath = app.Flag("config", "Path to config file").Default("config/retrocast.yaml").String()

	// add-movie command
	addMovieCmd    = app.Command("add-movie", "Register a feature movie")
	addMovieFile   = addMovieCmd.Arg("filename", "Media filename (relative to media dir)").Required().String()
	addMovieTitle  = addMovieCmd.Flag("title", "Display title").String()
	addMovieDesc   = addMovieCmd.Flag("description", "Guide description").String()
	addMovieStart  = addMovieCmd.Flag("start", "Playback window start (H:MM:SS)").String()
	addMovieEnd    = addMovieCmd.Flag("end", "Playback window end (H:MM:SS)").String()
	addMovieBreaks = addMovieCmd.Flag("break", "Break point (H:MM:SS), repeatable").Strings()

	// list-movies command
	listMoviesCmd = app.Command("list-movies", "List registered movies").Alias("movies")

	// remove-movie command
	removeMovieCmd  = app.Command("remove-movie", "Remove a movie and its metadata")
	removeMovieFile = removeMovieCmd.Arg("filename", "Media filename").Required().String()

	// add-playlist command
	addPlaylistCmd  = app.Command("add-playlist", "Create a clip playlist")
	addPlaylistName = addPlaylistCmd.Arg("name", "Playlist name").Required().String()

	// add-clip command
	addClipCmd      = app.Command("add-clip", "Append a clip to a playlist")
	addClipPlaylist = addClipCmd.Arg("playlist", "Playlist name").Required().String()
	addClipFile     = addClipCmd.Arg("filename", "Clip filename (relative to video dir)").Required().String()
	addClipTitle    = addClipCmd.Flag("title", "Display title").String()

	// set-queue command
	setQueueCmd   = app.Command("set-queue", "Replace the playback queue")
	setQueueFiles = setQueueCmd.Arg("filename", "Movie filenames in play order").Required().Strings()

	// set command
	setCmd   = app.Command("set", "Write a setting")
	setKey   = setCmd.Arg("key", "Setting key").Required().String()
	setValue = setCmd.Arg("value", "Setting value").Required().String()

	// get command
	getCmd = app.Command("get", "Read a setting")
	getKey = getCmd.Arg("key", "Setting key").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("load config: %v", err)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fail("open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()

	switch command {
	case addMovieCmd.FullCommand():
		addMovie(ctx, st)
	case listMoviesCmd.FullCommand():
		listMovies(ctx, st)
	case removeMovieCmd.FullCommand():
		removeMovie(ctx, st)
	case addPlaylistCmd.FullCommand():
		addPlaylist(ctx, st)
	case addClipCmd.FullCommand():
		addClip(ctx, st)
	case setQueueCmd.FullCommand():
		setQueue(ctx, st)
	case setCmd.FullCommand():
		setSetting(ctx, st)
	case getCmd.FullCommand():
		getSetting(ctx, st)
	}
}

func addMovie(ctx context.Context, st *store.Store) {
	m := &store.FeatureMovie{
		Filename:    filepath.Base(*addMovieFile),
		Title:       *addMovieTitle,
		Description: *addMovieDesc,
	}
	if *addMovieStart != "" {
		m.Timestamps = append(m.Timestamps, store.Timestamp{Kind: "start", Token: *addMovieStart})
	}
	if *addMovieEnd != "" {
		m.Timestamps = append(m.Timestamps, store.Timestamp{Kind: "end", Token: *addMovieEnd})
	}
	for _, b := range *addMovieBreaks {
		m.Breaks = append(m.Breaks, store.CommercialBreak{Token: b})
	}
	if err := st.CreateMovie(ctx, m); err != nil {
		fail("add movie: %v", err)
	}
	fmt.Printf("Added %s (%d breaks)\n", m.Filename, len(m.Breaks))
}

func listMovies(ctx context.Context, st *store.Store) {
	movies, err := st.ListMovies(ctx)
	if err != nil {
		fail("list movies: %v", err)
	}
	if len(movies) == 0 {
		fmt.Println("No movies registered")
		return
	}
	for _, m := range movies {
		breaks := make([]string, 0, len(m.Breaks))
		for _, b := range m.Breaks {
			breaks = append(breaks, b.Token)
		}
		fmt.Printf("%-40s %-30s breaks: %s\n", m.Filename, m.Title, strings.Join(breaks, ", "))
	}
}

func removeMovie(ctx context.Context, st *store.Store) {
	m, err := st.MovieByFilename(ctx, filepath.Base(*removeMovieFile))
	if err != nil {
		fail("find movie: %v", err)
	}
	if err := st.DeleteMovie(ctx, m.ID); err != nil {
		fail("remove movie: %v", err)
	}
	fmt.Printf("Removed %s\n", m.Filename)
}

func addPlaylist(ctx context.Context, st *store.Store) {
	if _, err := st.CreatePlaylist(ctx, *addPlaylistName); err != nil {
		fail("add playlist: %v", err)
	}
	fmt.Printf("Created playlist %s\n", *addPlaylistName)
}

func addClip(ctx context.Context, st *store.Store) {
	p, err := st.PlaylistByName(ctx, *addClipPlaylist)
	if err != nil {
		fail("find playlist: %v", err)
	}
	v, err := st.UpsertVideo(ctx, filepath.Base(*addClipFile), *addClipTitle)
	if err != nil {
		fail("register clip: %v", err)
	}
	if err := st.AppendToPlaylist(ctx, p.ID, v.ID); err != nil {
		fail("append clip: %v", err)
	}
	fmt.Printf("Appended %s to %s\n", v.Filename, p.Name)
}

func setQueue(ctx context.Context, st *store.Store) {
	ids := make([]uint, 0, len(*setQueueFiles))
	for _, f := range *setQueueFiles {
		m, err := st.MovieByFilename(ctx, filepath.Base(f))
		if err != nil {
			fail("find movie %s: %v", f, err)
		}
		ids = append(ids, m.ID)
	}
	if err := st.ReplaceQueue(ctx, ids); err != nil {
		fail("set queue: %v", err)
	}
	fmt.Printf("Queue set (%d movies)\n", len(ids))
}

func setSetting(ctx context.Context, st *store.Store) {
	if err := st.SetSetting(ctx, *setKey, *setValue); err != nil {
		fail("set: %v", err)
	}
	fmt.Printf("%s = %s\n", *setKey, *setValue)
}

func getSetting(ctx context.Context, st *store.Store) {
	v, err := st.GetSetting(ctx, *getKey)
	if err != nil {
		fail("get: %v", err)
	}
	fmt.Println(v)
}

func fail(format string, args ...any) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}
