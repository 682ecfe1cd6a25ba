package location

import (
	"bytes"
	"text/template"
)

// DomainPlaceholder is replaced by the external domain when the
// configuration is rendered.
const DomainPlaceholder = "__DOMAIN__"

// versionBlock serves the descriptor at the exact versioned path and the
// pre-compressed tiles below it. @empty_tile is defined by the base template.
var versionBlock = template.Must(template.New("version").Parse(`
    location = /{{.Area}}/{{.Version}} {     # no trailing slash
        alias {{.Descriptor}};          # no trailing slash

        expires 1w;
        default_type application/json;

        add_header 'Access-Control-Allow-Origin' '*' always;
        add_header Cache-Control public;
    }

    location /{{.Area}}/{{.Version}}/ {      # trailing slash
        alias {{.Tiles}}/;          # trailing slash
        try_files $uri @empty_tile;
        add_header Content-Encoding gzip;

        expires 10y;

        types {
            application/vnd.mapbox-vector-tile pbf;
        }

        add_header 'Access-Control-Allow-Origin' '*' always;
        add_header Cache-Control public;
    }
`))

// aliasBlock serves the descriptor of the designated version at the
// unversioned area path.
var aliasBlock = template.Must(template.New("alias").Parse(`
    location = /{{.Area}} {          # no trailing slash
        alias {{.Descriptor}};       # no trailing slash

        expires 1d;
        default_type application/json;

        add_header 'Access-Control-Allow-Origin' '*' always;
        add_header Cache-Control public;
    }
`))

var usageHint = template.Must(template.New("hint").Parse(`
test with:
curl -H "Host: ofm" -I http://localhost/{{.Area}}/{{.Version}}/14/8529/5975.pbf
curl -I https://{{.Domain}}/{{.Area}}/{{.Version}}/14/8529/5975.pbf`))

type blockData struct {
	Area       string
	Version    string
	Descriptor string
	Tiles      string
	Domain     string
}

func execute(t *template.Template, data blockData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
