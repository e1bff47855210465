package auth

import (
	"fmt"
	"html"
)

// loginSuccessHTML is served by the callback server after a successful
// authorization redirect.
const loginSuccessHTML = `<!DOCTYPE html><html><head><title>Login Successful</title>
<style>body{font-family:system-ui,sans-serif;display:flex;justify-content:center;
align-items:center;height:100vh;margin:0;background:#f0f9ff}
.card{background:white;padding:2rem;border-radius:8px;box-shadow:0 2px 10px rgba(0,0,0,0.1);
text-align:center;max-width:400px}
h1{color:#059669;margin-bottom:0.5rem}
p{color:#6b7280}</style></head>
<body><div class='card'>
<h1>Login Successful</h1>
<p>You can close this window and return to your application.</p>
</div></body></html>`

// loginFailureHTML renders the terminal failure page with the given heading
// and detail. Values are escaped; the detail may echo provider-supplied
// error text.
func loginFailureHTML(heading, detail string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>Login Failed</title>
<style>body{font-family:system-ui,sans-serif;display:flex;justify-content:center;
align-items:center;height:100vh;margin:0;background:#fef2f2}
.card{background:white;padding:2rem;border-radius:8px;box-shadow:0 2px 10px rgba(0,0,0,0.1);
text-align:center;max-width:400px}
h1{color:#dc2626;margin-bottom:0.5rem}
p{color:#6b7280}</style></head>
<body><div class='card'>
<h1>%s</h1>
<p>%s</p>
</div></body></html>`, html.EscapeString(heading), html.EscapeString(detail))
}
