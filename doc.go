/*
Package tileroute generates the reverse proxy configuration of a tile serving host
from the tile datasets found on disk, and activates it.

Every dataset directory "<area>-<version>" below the tiles directory which has both
a run directory and a metadata.json gets a tilejson descriptor, derived by an external
converter, and two nginx locations: "= /<area>/<version>" serving the descriptor and
"/<area>/<version>/" serving the pre-compressed tiles. Version pointer files
"tileset_version_<area>.txt" add a "= /<area>" location serving the descriptor of the
designated version. A static fragment of fallback locations always comes last.

The locations are substituted into a base template, written to the proxy's site
configuration, validated with "nginx -t" and activated with "systemctl reload nginx".
Without a configured domain nothing is written and the proxy is left alone.

Running tileroute requires a JSON configuration file. (the file allows "//" comments):

   {
      "TilesDir" : "/mnt/ofm",
      "RunsDir" : "/data/ofm/http_host/runs",
      "VersionsDir" : "/data/ofm/config",
      "TemplateDir" : "/data/ofm/http_host/nginx",   // cf.conf and location_static.conf
      "OutputFile" : "/data/nginx/sites/cf.conf",
      "Domain" : "tiles.example.org",
      "Converter" : {
          "Command" : [ "python3", "/data/ofm/http_host/metadata_to_tilejson.py" ]
      }
   }

*/
package tileroute
