package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blackwell-systems/gitwatch/internal/app"
)

func main() {
	if err := app.Execute(context.Background()); err != nil {
		var exitErr *app.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
