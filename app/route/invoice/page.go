package invoice

import (
	"fmt"

	"github.com/angelofallars/sheetbill/app/header"
)

const pageTitle = "Timesheet Invoice Generator"

// apiKeyHeaders is the hx-headers value that sends the key typed into the
// page with every request the form makes.
func apiKeyHeaders() string {
	return fmt.Sprintf(`js:{%q: document.getElementById("api-key").value}`, header.APIKey)
}
