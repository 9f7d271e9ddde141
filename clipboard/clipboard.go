// Package clipboard copies text to the system clipboard through Wails.
package clipboard

import (
	"errors"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// ErrUnavailable is returned when there is no running application to own the
// clipboard, e.g. in headless use.
var ErrUnavailable = errors.New("clipboard: unavailable")

// SetText replaces the clipboard contents with text.
func SetText(app *application.App, text string) error {
	if app == nil {
		return ErrUnavailable
	}
	if !app.Clipboard.SetText(text) {
		return errors.New("clipboard: set text failed")
	}
	return nil
}
