package callback

import (
	"context"
	"fmt"
	"io"

	"github.com/cmstar/go-logx"
)

// Opener shows a URL to the user.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// WriterOpener prints the URL to w, for terminal programs.
func WriterOpener(w io.Writer) Opener {
	return OpenerFunc(func(_ context.Context, url string) error {
		_, err := fmt.Fprintf(w, "Open the following URL to validate the credential:\n\n    %s\n\n", url)
		return err
	})
}

type logOpener struct {
	logger logx.Logger
}

func (o logOpener) Open(_ context.Context, url string) error {
	return o.logger.Log(logx.LevelInfo, "validation page", "url", url)
}
