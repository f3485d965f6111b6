package webui

const uiHeader = `
<html>
	<head>
	<style>
		.buttons { margin-bottom: 1rem; }
		button {
			background-color: black;
			color: white;
			border: 1px solid black;
			padding: 8px;
			font-size: 16px;
			cursor: pointer;
		}
		table { border-collapse: collapse; width: 100%; }
		th, td { border: 1px solid black; padding: 8px; text-align: left; }
		th { background-color: black; color: white; }
		.free { background-color: #dfd; }
		.used { background-color: #fdd; }
	</style>
		<title>WINIX kernel dashboard</title>
	</head>
	<body>
	<div class="buttons">
		<a href="/"><button>Process Table</button></a>
		<a href="/mem"><button>Memory Map</button></a>
		<a href="/refresh"><button>Refresh</button></a>
	</div>
`

const uiFooter = `
	</body>
</html>
`

const processTableView = `
	<p>Last refresh: {{ .LastRefresh }}</p>
	<table>
		<tr>
			<th>proc_nr</th><th>pid</th><th>ppid</th><th>name</th>
			<th>state</th><th>priority</th><th>ticks_left</th><th>pages</th>
		</tr>
		{{ range .Procs }}
		<tr{{ if .IsCurrent }} style="font-weight: bold"{{ end }}>
			<td><a href="/proc/{{ .ProcNr }}">{{ .ProcNr }}</a></td>
			<td>{{ .Pid }}</td>
			<td>{{ .ParentPid }}</td>
			<td>{{ .Name }}</td>
			<td>{{ .State }}</td>
			<td>{{ .Priority }}</td>
			<td>{{ .TicksLeft }}</td>
			<td>{{ .PageCount }}</td>
		</tr>
		{{ end }}
	</table>
`

const procDetailsView = `
	<div class="buttons">
		<a href="/"><button>Back</button></a>
	</div>
	<table>
		<tr><th>Field</th><th>Value</th></tr>
		<tr><td>proc_nr</td><td>{{ .ProcNr }}</td></tr>
		<tr><td>pid</td><td>{{ .Pid }}</td></tr>
		<tr><td>parent pid</td><td>{{ .ParentPid }}</td></tr>
		<tr><td>name</td><td>{{ .Name }}</td></tr>
		<tr><td>state</td><td>{{ .State }}</td></tr>
		<tr><td>priority</td><td>{{ .Priority }}</td></tr>
		<tr><td>quantum</td><td>{{ .Quantum }}</td></tr>
		<tr><td>ticks left</td><td>{{ .TicksLeft }}</td></tr>
		<tr><td>time used</td><td>{{ .TimeUsed }}</td></tr>
		<tr><td>rbase</td><td>{{ .RBase }}</td></tr>
		<tr><td>length</td><td>{{ .Length }}</td></tr>
		<tr><td>pages owned</td><td>{{ .PageCount }}</td></tr>
	</table>
`

const memMapView = `
	<p>Last refresh: {{ .LastRefresh }}</p>
	<p>{{ .Mem.FreePages }} / {{ .Mem.TotalPages }} pages free (page size {{ .Mem.PageSize }} bytes)</p>
`

const errorView = `
	<p style="color: red">error: {{ . }}</p>
`
