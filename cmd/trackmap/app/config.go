package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultWidth  = 1200
	defaultHeight = 900
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	TimeZone      *time.Location
	StartTime     *time.Time
	EndTime       *time.Time
	MinSatellites uint
	Width         int
	Height        int
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

var timeLayouts = []string{time.RFC3339, time.DateTime}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    ClassicTheme,
		TimeZone: time.Local,
		Width:    defaultWidth,
		Height:   defaultHeight,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseConfig(os.Args[0], os.Args[1:], os.Stderr)
}

func parseConfig(name string, args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	var imageFormat, theme, tz, start, end string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(ClassicTheme), "Altitude color theme. [classic, thermal, marine, grayscale]")
	fs.StringVar(&tz, "tz", "Local", "Time zone for time labels")
	fs.StringVar(&start, "start", "", "Only positions received at or after this time (RFC 3339 or \"2006-01-02 15:04:05\" UTC)")
	fs.StringVar(&end, "end", "", "Only positions received at or before this time")
	fs.UintVar(&c.MinSatellites, "min-satellites", 0, "Only positions with at least this many satellites")
	fs.IntVar(&c.Width, "width", defaultWidth, "Map width in pixels")
	fs.IntVar(&c.Height, "height", defaultHeight, "Map height in pixels")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as scales, legend and info bar")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.Width < 100 || c.Height < 100:
		err = fmt.Errorf("image size %dx%d is too small", c.Width, c.Height)
	case c.MinSatellites > 255:
		err = fmt.Errorf("invalid satellite count: %d", c.MinSatellites)
	}
	if err == nil {
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		} else if !validTheme(ColorTheme(theme)) {
			err = fmt.Errorf("invalid color theme: %s", theme)
		}
	}
	if err == nil {
		c.TimeZone, err = time.LoadLocation(tz)
	}
	if err == nil {
		c.StartTime, err = parseTime(start)
	}
	if err == nil {
		c.EndTime, err = parseTime(end)
	}
	if err == nil && c.StartTime != nil && c.EndTime != nil && c.StartTime.After(*c.EndTime) {
		err = errors.New("start time is after end time")
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time: %s", s)
}
