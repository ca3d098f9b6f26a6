package templates

// Built-in bodies for the default template. Any @NAME@ marker is replaced at
// render time; unmatched markers stay visible in the output.

const defaultDomainBody = `<html>
<head><meta charset="utf-8"><title>Traffic Report - @ZONE_NAME@</title></head>
<body>
<h1>Traffic Report for @ZONE_NAME@</h1>
<p>Period: @PERIOD_START@ &ndash; @PERIOD_END@</p>
@CAPPED_NOTICE@
<h2>Summary</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><td>Total requests</td><td>@TOTAL_REQUESTS@</td></tr>
  <tr><td>Total firewall events</td><td>@TOTAL_FIREWALL_EVENTS@</td></tr>
  <tr><td>Most active client IP</td><td>@TOP_IP@</td></tr>
  <tr><td>Most requested host</td><td>@TOP_HOST@</td></tr>
</table>
<h2>Top Client IPs</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><th>#</th><th>Client IP</th><th>Requests</th></tr>
@TOP_IPS_TABLE@
</table>
<h2>Top Hosts</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><th>#</th><th>Host</th><th>Requests</th></tr>
@TOP_HOSTS_TABLE@
</table>
<h2>Firewall Activity by Rule</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><th>#</th><th>Rule</th><th>Events</th></tr>
@FIREWALL_RULES_TABLE@
</table>
<h2>Firewall Activity by Source</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><th>#</th><th>Source</th><th>Events</th></tr>
@FIREWALL_SOURCES_TABLE@
</table>
<p><small>Generated at @GENERATED_AT@</small></p>
</body>
</html>
`

const defaultSubdomainBody = `<html>
<head><meta charset="utf-8"><title>Traffic Report - @SUBDOMAIN@</title></head>
<body>
<h1>Traffic Report for @SUBDOMAIN@</h1>
<p>Zone: @ZONE_NAME@</p>
<p>Period: @PERIOD_START@ &ndash; @PERIOD_END@</p>
@CAPPED_NOTICE@
<h2>Summary</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><td>Total requests</td><td>@TOTAL_REQUESTS@</td></tr>
  <tr><td>Total firewall events</td><td>@TOTAL_FIREWALL_EVENTS@</td></tr>
  <tr><td>Most active client IP</td><td>@TOP_IP@</td></tr>
</table>
<h2>Top Client IPs</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><th>#</th><th>Client IP</th><th>Requests</th></tr>
@TOP_IPS_TABLE@
</table>
<h2>Firewall Activity by Rule</h2>
<table border="1" cellspacing="0" cellpadding="4">
  <tr><th>#</th><th>Rule</th><th>Events</th></tr>
@FIREWALL_RULES_TABLE@
</table>
<p><small>Generated at @GENERATED_AT@</small></p>
</body>
</html>
`
