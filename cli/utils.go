package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/planarik/config"
	"go.viam.com/planarik/logging"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck // no need to check for error
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck // no need to check for error
	fmt.Fprintf(w, "\033[1mWarning:\033[0m "+format+"\n", a...)
}

// mapOver applies fn to each element of items and stops at the first error.
func mapOver[T, U any](items []T, fn func(T) (U, error)) ([]U, error) {
	ret := make([]U, 0, len(items))
	for _, item := range items {
		newItem, err := fn(item)
		if err != nil {
			return nil, err
		}
		ret = append(ret, newItem)
	}
	return ret, nil
}

// parseFloats parses a comma separated list of numbers such as "100,70,50".
func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty list")
	}
	return mapOver(strings.Split(s, ","), func(field string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "bad number %q", field)
		}
		return v, nil
	})
}

// parsePoint parses "x,y".
func parsePoint(s string) (r2.Point, error) {
	vals, err := parseFloats(s)
	if err != nil {
		return r2.Point{}, err
	}
	if len(vals) != 2 {
		return r2.Point{}, errors.Errorf("point %q must be x,y", s)
	}
	return r2.Point{X: vals[0], Y: vals[1]}, nil
}

// parseTargets parses targets of the form "x,y" or "x,y@frame". A target without a frame comes
// framesApart after the one before it, and the first at frame 0.
func parseTargets(specs []string, framesApart int) ([]config.Target, error) {
	next := 0
	return mapOver(specs, func(spec string) (config.Target, error) {
		pointPart, framePart, hasFrame := strings.Cut(spec, "@")
		p, err := parsePoint(pointPart)
		if err != nil {
			return config.Target{}, err
		}
		frame := next
		if hasFrame {
			if frame, err = strconv.Atoi(strings.TrimSpace(framePart)); err != nil {
				return config.Target{}, errors.Wrapf(err, "bad frame in target %q", spec)
			}
		}
		next = frame + framesApart
		return config.Target{X: p.X, Y: p.Y, Frame: frame}, nil
	})
}

// newLogger returns a logger writing to the error writer of the app, at debug level when the
// debug flag is set.
func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("planarik")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.INFO)
	}
	return logger
}
