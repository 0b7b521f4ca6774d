package render

import "html/template"

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Invoice.InvoiceNo}}</title>
<style>
  body { font-family: "Segoe UI", Arial, sans-serif; font-size: 13px; color: #222; margin: 0; padding: 16px; }
  .invoice { max-width: 720px; margin: 0 auto; border: 1px solid #999; padding: 18px; }
  .head { display: flex; justify-content: space-between; align-items: flex-start; border-bottom: 2px solid #333; padding-bottom: 10px; }
  .company h1 { margin: 0 0 4px; font-size: 20px; }
  .company p { margin: 1px 0; color: #444; }
  .logo img { max-height: 64px; max-width: 140px; }
  .title { text-align: center; font-size: 16px; font-weight: 700; letter-spacing: 2px; margin: 12px 0; }
  .meta { display: flex; justify-content: space-between; margin-bottom: 10px; }
  .customer { border: 1px solid #ccc; padding: 8px; margin-bottom: 10px; }
  .customer p { margin: 1px 0; }
  table.items { width: 100%; border-collapse: collapse; }
  table.items th, table.items td { border: 1px solid #999; padding: 5px 7px; }
  table.items th { background: #f0f0f0; text-align: left; }
  td.num, th.num { text-align: right; }
  tr.blank td { height: 22px; }
  .totals { width: 46%; margin-left: auto; margin-top: 10px; border-collapse: collapse; }
  .totals td { padding: 3px 7px; }
  .totals tr.grand td { border-top: 2px solid #333; font-weight: 700; font-size: 14px; }
  .words { margin-top: 10px; font-style: italic; }
  .payment { margin-top: 8px; }
  .payment p { margin: 2px 0; }
  .balance { color: #a00; font-weight: 700; }
  .foot { margin-top: 18px; text-align: center; color: #555; border-top: 1px solid #ccc; padding-top: 8px; }
  @media print { body { padding: 0; } .invoice { border: none; } }
</style>
</head>
<body>
<div class="invoice">
  <div class="head">
    <div class="company">
      <h1>{{.Company.Name}}</h1>
      {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
      {{if .Company.Phone}}<p>Phone: {{.Company.Phone}}</p>{{end}}
      {{if .Company.Email}}<p>Email: {{.Company.Email}}</p>{{end}}
      {{if and .ShowGST .Company.GSTIN}}<p>GSTIN: {{.Company.GSTIN}}</p>{{end}}
    </div>
    {{if .LogoURL}}<div class="logo"><img src="{{.LogoURL}}" alt="" onerror="this.style.display='none'"></div>{{end}}
  </div>

  <div class="title">{{.Title}}</div>

  <div class="meta">
    <div>Invoice No: <strong>{{.Invoice.InvoiceNo}}</strong></div>
    <div>Date: {{.DateText}}</div>
  </div>

  <div class="customer">
    <p><strong>Billed To:</strong> {{.CustomerLabel}}</p>
    {{if not .WalkInCustomer}}
    {{if .Invoice.CustomerPhone}}<p>Phone: {{.Invoice.CustomerPhone}}</p>{{end}}
    {{if .ShowCustomerIDs}}
    {{if .Invoice.CustomerGSTIN}}<p>GSTIN: {{.Invoice.CustomerGSTIN}}</p>{{end}}
    {{if .Invoice.CustomerAddress}}<p>{{.Invoice.CustomerAddress}}</p>{{end}}
    {{end}}
    {{end}}
  </div>

  <table class="items">
    <thead>
      <tr>
        <th>#</th>
        <th>Item</th>
        {{if .ShowHSN}}<th>HSN</th>{{end}}
        <th class="num">Qty</th>
        <th class="num">Rate</th>
        <th class="num">Discount</th>
        <th class="num">Amount</th>
      </tr>
    </thead>
    <tbody>
      {{range .Rows}}
      {{if .Blank}}
      <tr class="blank"><td></td><td></td>{{if $.ShowHSN}}<td></td>{{end}}<td></td><td></td><td></td><td></td></tr>
      {{else}}
      <tr>
        <td>{{.Index}}</td>
        <td>{{.Name}}</td>
        {{if $.ShowHSN}}<td>{{.HSN}}</td>{{end}}
        <td class="num">{{.Qty}}</td>
        <td class="num">{{.Price}}</td>
        <td class="num">{{.Discount}}</td>
        <td class="num">{{.Amount}}</td>
      </tr>
      {{end}}
      {{end}}
    </tbody>
  </table>

  <table class="totals">
    <tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
    {{if .ShowGST}}
    <tr><td>CGST ({{.HalfRate}}%)</td><td class="num">{{.CGST}}</td></tr>
    <tr><td>SGST ({{.HalfRate}}%)</td><td class="num">{{.SGST}}</td></tr>
    {{if .ShowIGST}}<tr><td>IGST ({{.TaxRate}}%)</td><td class="num">{{.IGST}}</td></tr>{{end}}
    {{end}}
    <tr class="grand"><td>Total</td><td class="num">&#8377; {{.Total}}</td></tr>
  </table>

  {{if .AmountWords}}<p class="words">Amount in words: {{.AmountWords}}</p>{{end}}

  <div class="payment">
    <p>Payment Mode: {{.Invoice.PaymentMode}}</p>
    <p>Amount Paid: &#8377; {{.Paid}}</p>
    {{if .ShowChange}}<p>Change Due: &#8377; {{.ChangeDue}}</p>{{end}}
    {{if .ShowBalance}}<p class="balance">Balance Due: &#8377; {{.BalanceDue}}</p>{{end}}
  </div>

  <div class="foot">Thank you for your business!</div>
</div>
{{if .Print}}<script>window.addEventListener("load", function () { window.print(); });</script>{{end}}
</body>
</html>
`))
