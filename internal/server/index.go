package server

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/mailblocks/internal/version"
)

const indexStyle = `body{font-family:system-ui,sans-serif;margin:0;padding:20px;background:#f5f5f5}
.container{max-width:960px;margin:0 auto;background:#fff;padding:20px;border-radius:8px}
h1{border-bottom:2px solid #007acc;padding-bottom:10px}
.category{margin-top:16px}
.type{display:inline-block;margin:4px;padding:4px 8px;border:1px solid #ddd;border-radius:4px;font-family:monospace}
#events{font-family:monospace;font-size:12px;white-space:pre-wrap;background:#fafafa;padding:10px;max-height:300px;overflow:auto}`

const indexScript = `(function(){
var log=document.getElementById("events");
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+"/ws");
ws.onmessage=function(e){var m=JSON.parse(e.data);
var line=m.timestamp+" "+m.type+" "+(m.path||m.block_type||"");
if(m.error){line+=" "+m.error}
if(m.problems){line+=" ("+m.problems.length+" problems)"}
log.textContent=line+"\n"+log.textContent;};
ws.onclose=function(){log.textContent="disconnected\n"+log.textContent;};
})();`

// indexPage renders the component catalog and the live event log.
func indexPage(categories map[string][]string, buildVersion string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		names := make([]string, 0, len(categories))
		for name := range categories {
			names = append(names, name)
		}
		sort.Strings(names)

		var b strings.Builder
		b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>mailblocks</title><style>")
		b.WriteString(indexStyle)
		b.WriteString("</style></head><body><div class=\"container\"><h1>mailblocks</h1><p>")
		b.WriteString(templ.EscapeString(buildVersion))
		b.WriteString("</p><h2>Components</h2>")
		for _, name := range names {
			blockTypes := append([]string(nil), categories[name]...)
			sort.Strings(blockTypes)
			b.WriteString("<div class=\"category\"><h3>")
			b.WriteString(templ.EscapeString(name))
			b.WriteString("</h3>")
			for _, t := range blockTypes {
				b.WriteString("<span class=\"type\">")
				b.WriteString(templ.EscapeString(t))
				b.WriteString("</span>")
			}
			b.WriteString("</div>")
		}
		b.WriteString("<h2>Events</h2><div id=\"events\"></div></div><script>")
		b.WriteString(indexScript)
		b.WriteString("</script></body></html>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage(s.registry.Categories(), version.GetBuildInfo().Short())
	templ.Handler(page).ServeHTTP(w, r)
}
