package bwcdkservice

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// DefaultUserDataTemplate bootstraps a web server that identifies the region serving
// the request, which makes failover visible from a browser.
const DefaultUserDataTemplate = `yum update -y
yum install -y httpd mariadb105
systemctl enable --now httpd
cat > /var/www/html/index.html <<'HTML'
<h1>{{ .ServiceName | title }}</h1>
<p>served from {{ .Area | upper }} ({{ .Region }})</p>
HTML
cat > /etc/profile.d/{{ .ServiceName | snakecase }}_db.sh <<'ENV'
export DB_HOST={{ .DatabaseHost | quote }}
export DB_PORT={{ .DatabasePort }}
ENV
`

// UserDataValues are the values available to user data templates.
type UserDataValues struct {
	ServiceName      string
	Area             string
	Region           string
	GlobalDomainName string
	DatabaseHost     string
	DatabasePort     int
	IsPrimary        bool
}

// RenderUserData executes a user data template with the sprig function map.
// Unknown keys are an error so that typos in region-specific scripts fail at synth time.
func RenderUserData(text string, values UserDataValues) (string, error) {
	tmpl, err := template.New("userdata").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(text)
	if err != nil {
		return "", errors.Wrap(err, "parse user data template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrap(err, "render user data template")
	}
	return buf.String(), nil
}
