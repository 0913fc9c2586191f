package web

// pagesTpl holds every control page as a named template. Markup is kept
// minimal and self-contained, no external assets.
const pagesTpl = `
{{define "head"}}<!doctype html>
<html lang="en">
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>PhotoFrame</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto;max-width:720px;margin:0 auto;padding:1rem;text-align:center;background:#f0f0f0}
h1{background:#333;color:#fff;padding:16px;border-radius:8px}
.button{display:inline-block;padding:12px 20px;margin:8px;color:#fff;background:#4caf50;border:none;border-radius:12px;text-decoration:none;cursor:pointer;font-size:16px}
.button:hover{background:#3e8e41}
.muted{color:#666}
ul{list-style:none;padding:0;text-align:left;display:inline-block}
input[type=checkbox]{margin-right:8px;transform:scale(1.3)}
</style>{{end}}

{{define "index"}}{{template "head"}}
<h1>PhotoFrame</h1>
<p class="muted">{{.Count}} images · {{if .Running}}playing every {{.IntervalSeconds}}s{{else}}paused{{end}} · {{.Viewers}} viewers</p>
{{if eq .Count 0}}<p><strong>No images on storage.</strong> Upload one to start the slideshow.</p>{{end}}
<p>
  <a class="button" href="/upload_file">Upload a New Image</a>
  <a class="button" href="/delete">Delete Images</a>
  <a class="button" href="/play-music">Play Music</a>
  <a class="button" href="/speed">Set Slideshow Speed</a>
  <a class="button" href="/slideshow">View Slideshow</a>
  <a class="button" href="/about">About</a>
</p>
</html>{{end}}

{{define "about"}}{{template "head"}}
<h1>About PhotoFrame</h1>
<p>A connected photo frame: it cycles through the images on storage,
plays the stored audio track on request and is managed from this page.</p>
<p class="muted">{{.Count}} images on storage.</p>
<p class="muted">Upload and delete images, adjust the slideshow speed or watch
the live view from the home page.</p>
<a class="button" href="/">Back</a>
</html>{{end}}

{{define "speed"}}{{template "head"}}
<h1>Set Slideshow Speed</h1>
<form action="/set-speed" method="POST">
  <label for="speed">Seconds between images:</label>
  <input type="number" id="speed" name="speed" min="1" value="{{.IntervalSeconds}}">
  <input type="submit" class="button" value="Set Speed">
</form>
<a class="button" href="/">Back</a>
</html>{{end}}

{{define "upload"}}{{template "head"}}
<h1>Upload a New Image</h1>
<form method="POST" action="/upload_file" enctype="multipart/form-data">
  <input type="file" name="file">
  <input type="submit" class="button" value="Upload">
</form>
<a class="button" href="/">Back</a>
</html>{{end}}

{{define "delete"}}{{template "head"}}
<h1>Delete Images</h1>
{{if .Names}}
<form method="POST" action="/delete_files">
  <ul>
  {{range .Names}}<li><label><input type="checkbox" name="file" value="{{.}}">{{.}}</label></li>
  {{end}}</ul>
  <br><input type="submit" class="button" value="Delete Selected Files">
</form>
{{else}}<p>No files found.</p>{{end}}
<a class="button" href="/">Back</a>
</html>{{end}}

{{define "deleted"}}{{template "head"}}
<h1>Delete Images</h1>
{{if .AllOK}}<p>Selected images deleted successfully.</p>{{else}}<p>Some images could not be deleted:</p>{{end}}
<ul>
{{range .Items}}<li>{{.Name}}: {{if .OK}}deleted{{else}}failed{{end}}</li>
{{end}}</ul>
<a class="button" href="/delete">Back</a>
<a class="button" href="/">Main Page</a>
</html>{{end}}

{{define "message"}}{{template "head"}}
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
<a class="button" href="{{.Back}}">Back</a>
<a class="button" href="/">Main Page</a>
</html>{{end}}

{{define "slideshow"}}{{template "head"}}
<h1>Slideshow</h1>
<p><img id="frame" src="/current_image" style="max-width:100%;height:auto" alt="current frame"></p>
<a class="button" href="/">Back</a>
<script>
(function(){
  var img = document.getElementById('frame');
  var es = new EventSource('/events');
  es.addEventListener('update', function(){
    img.src = '/current_image?t=' + Date.now();
  });
})();
</script>
</html>{{end}}
`
