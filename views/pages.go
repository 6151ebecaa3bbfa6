// Package views holds the built-in pages as templ components.
package views

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"bytes": FormatBytes,
}).Parse(layout + loginPage + dashboardPage + schedulerPage + errorPages))

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// Login is the passcode form.
func Login(showError bool, csrfToken string) templ.Component {
	return page("login", struct {
		ShowError bool
		CSRFToken string
	}{showError, csrfToken})
}

// Dashboard lists the user's images with upload and bulk actions.
func Dashboard(d DashboardData) templ.Component {
	return page("dashboard", d)
}

// Scheduler is the schedule builder page.
func Scheduler(d SchedulerData) templ.Component {
	return page("scheduler", d)
}

func NotFound() templ.Component {
	return page("notfound", nil)
}

func ServerError() templ.Component {
	return page("servererror", nil)
}

const layout = `
{{define "head"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}} · Alchemy</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#fafaf9;color:#1c1917}
header{display:flex;gap:1rem;align-items:center;padding:1rem 2rem;border-bottom:1px solid #e7e5e4}
header a{color:inherit}
main{padding:2rem;max-width:1100px;margin:auto}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(300px,1fr));gap:1rem}
.card{background:#fff;border:1px solid #e7e5e4;border-radius:8px;padding:1rem}
.card img{width:100%;height:200px;object-fit:cover;border-radius:4px}
.status-failed{color:#b91c1c}.status-processing{color:#a16207}.status-complete{color:#15803d}
.bar{height:8px;background:#e7e5e4;border-radius:4px}.bar span{display:block;height:8px;background:#1c1917;border-radius:4px}
table{border-collapse:collapse;width:100%}td,th{border:1px solid #e7e5e4;padding:.4rem;font-size:.85rem;text-align:left}
.error{color:#b91c1c}
</style>
</head>
<body>{{end}}

{{define "nav"}}<header>
<strong>Alchemy</strong>
<a href="/dashboard/">Images</a>
<a href="/scheduler/">Scheduler</a>
<form method="post" action="/logout/" style="margin-left:auto">
<input type="hidden" name="_csrf" value="{{.}}">
<button type="submit">Log out</button>
</form>
</header>{{end}}

{{define "foot"}}</body></html>{{end}}
`

const loginPage = `
{{define "login"}}{{template "head" "Log in"}}
<main>
<h1>Log in</h1>
{{if .ShowError}}<p class="error">Invalid passcode.</p>{{end}}
<form method="post" action="/login/">
<input type="hidden" name="_csrf" value="{{.CSRFToken}}">
<label>Passcode <input type="password" name="otp" autocomplete="one-time-code" required autofocus></label>
<button type="submit">Continue</button>
</form>
</main>
{{template "foot"}}{{end}}
`

const dashboardPage = `
{{define "dashboard"}}{{template "head" "Images"}}{{template "nav" .CSRFToken}}
<main data-csrf="{{.CSRFToken}}">
{{if .Message}}<p>{{.Message}}</p>{{end}}
<section>
<p>{{bytes .TotalSize}} of {{bytes .Quota}} used</p>
<div class="bar"><span style="width:{{.UsedPercent}}%"></span></div>
</section>
<section>
<h2>Upload</h2>
<form id="upload" enctype="multipart/form-data">
<input type="file" name="image" accept="image/*" multiple required>
<button type="submit">Upload</button>
</form>
</section>
<section>
<h2>Your images</h2>
<p><button id="delete-selected">Delete selected</button> <button id="process-selected">Process selected now</button></p>
<div class="grid">
{{range .Images}}
<article class="card" data-id="{{.ID}}">
<label><input type="checkbox" class="select" value="{{.ID}}"> select</label>
<img src="{{.URL}}" alt="{{.AltText}}" loading="lazy">
<p class="status-{{.Status}}">{{.Status}}{{if .ExpiresIn}} · expires in {{.ExpiresIn}}{{end}}</p>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form class="edit">
<label>Title <input name="title" value="{{.Title}}"></label>
<label>Description <textarea name="description">{{.Description}}</textarea></label>
<label>Alt text <input name="alt_text" value="{{.AltText}}"></label>
<label>Keywords <input name="keywords" value="{{.Keywords}}"></label>
<label>Board <input name="pinterest_board" value="{{.Board}}"></label>
<label>Link <input name="link" value="{{.Link}}"></label>
<button type="submit">Save</button>
<button type="button" class="regenerate">Regenerate</button>
</form>
<p>{{.Hashtags}}</p>
<form method="get" action="/images/{{.ID}}/download/">
<select name="preset">
{{range $.Presets}}<optgroup label="{{.Platform}}">{{range .Presets}}<option value="{{.Key}}">{{.Type}} ({{.Width}}×{{.Height}})</option>{{end}}</optgroup>{{end}}
</select>
<button type="submit">Download</button>
</form>
</article>
{{else}}
<p>No images yet.</p>
{{end}}
</div>
</section>
</main>
<script>
(function(){
  var csrf = document.querySelector("main").dataset.csrf;
  function send(method, url, body) {
    var opts = {method: method, headers: {"X-CSRF-Token": csrf}};
    if (body instanceof FormData) { opts.body = body; }
    else if (body) { opts.headers["Content-Type"] = "application/json"; opts.body = JSON.stringify(body); }
    return fetch(url, opts).then(function(r){
      if (!r.ok) { return r.json().then(function(e){ alert(e.error || r.statusText); throw e; }); }
      return r.json();
    });
  }
  function selected() {
    return Array.prototype.map.call(document.querySelectorAll(".select:checked"), function(c){ return c.value; });
  }
  document.getElementById("upload").addEventListener("submit", function(ev){
    ev.preventDefault();
    var files = ev.target.elements.image.files, jobs = [];
    for (var i = 0; i < files.length; i++) {
      var fd = new FormData(); fd.append("image", files[i]);
      jobs.push(send("POST", "/api/upload/", fd));
    }
    Promise.all(jobs).then(function(){ location.reload(); });
  });
  document.getElementById("delete-selected").addEventListener("click", function(){
    var ids = selected(); if (!ids.length) return;
    send("POST", "/api/images/delete/", {imageIds: ids}).then(function(){ location.reload(); });
  });
  document.getElementById("process-selected").addEventListener("click", function(){
    var ids = selected(); if (!ids.length) return;
    send("POST", "/api/process-now/", {imageIds: ids}).then(function(){ location.reload(); });
  });
  document.querySelectorAll(".card").forEach(function(card){
    var id = card.dataset.id, form = card.querySelector(".edit");
    form.addEventListener("submit", function(ev){
      ev.preventDefault();
      var f = form.elements;
      send("PUT", "/api/images/" + id + "/", {
        metadata: {
          title: f.title.value, description: f.description.value, alt_text: f.alt_text.value,
          keywords: f.keywords.value.split(","), pinterest_board: f.pinterest_board.value
        },
        link: f.link.value
      }).then(function(){ location.reload(); });
    });
    card.querySelector(".regenerate").addEventListener("click", function(){
      send("POST", "/api/images/" + id + "/regenerate/").then(function(){ location.reload(); });
    });
  });
})();
</script>
{{template "foot"}}{{end}}
`

const schedulerPage = `
{{define "scheduler"}}{{template "head" "Scheduler"}}{{template "nav" .CSRFToken}}
<main data-csrf="{{.CSRFToken}}">
<h1>Content scheduler</h1>
<p>{{.Ready}} processed images ready.</p>
<form id="cadence">
<label>Start date <input type="date" name="startDate" value="{{.StartDate}}" required></label>
<label>Days <input type="number" name="numDays" min="1" value="7" required></label>
<label>Posts per day <input type="number" name="postsPerDay" min="1" value="3" required></label>
<button type="submit">Generate</button>
<a id="csv" href="#" hidden>Download CSV</a>
</form>
<p id="schedule-error" class="error"></p>
<table id="schedule" hidden>
<thead><tr><th>Date</th><th>Time</th><th>Title</th><th>Board</th><th>Image</th></tr></thead>
<tbody></tbody>
</table>
</main>
<script>
(function(){
  var csrf = document.querySelector("main").dataset.csrf;
  var form = document.getElementById("cadence");
  form.addEventListener("submit", function(ev){
    ev.preventDefault();
    var f = form.elements;
    var body = {startDate: f.startDate.value, numDays: +f.numDays.value, postsPerDay: +f.postsPerDay.value};
    var errEl = document.getElementById("schedule-error"), table = document.getElementById("schedule");
    errEl.textContent = ""; table.hidden = true;
    fetch("/api/schedule/", {method: "POST", headers: {"Content-Type": "application/json", "X-CSRF-Token": csrf}, body: JSON.stringify(body)})
      .then(function(r){ return r.json().then(function(j){ return {ok: r.ok, j: j}; }); })
      .then(function(res){
        if (!res.ok) { errEl.textContent = res.j.error; return; }
        var tbody = table.querySelector("tbody"); tbody.textContent = "";
        res.j.schedule.forEach(function(it){
          var tr = document.createElement("tr");
          [it.publish_date, it.publish_time, it.title, it.pinterest_board, it.image_url].forEach(function(v){
            var td = document.createElement("td"); td.textContent = v; tr.appendChild(td);
          });
          tbody.appendChild(tr);
        });
        table.hidden = false;
        var csv = document.getElementById("csv");
        csv.href = "/api/schedule.csv?" + new URLSearchParams(body).toString();
        csv.hidden = false;
      });
  });
})();
</script>
{{template "foot"}}{{end}}
`

const errorPages = `
{{define "notfound"}}{{template "head" "Not found"}}
<main><h1>Not found</h1><p>The page you asked for does not exist. <a href="/">Go home</a>.</p></main>
{{template "foot"}}{{end}}

{{define "servererror"}}{{template "head" "Error"}}
<main><h1>Something went wrong</h1><p>Please try again in a moment.</p></main>
{{template "foot"}}{{end}}
`
