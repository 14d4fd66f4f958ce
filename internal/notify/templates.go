package notify

// Inline HTML bodies for customer emails. Kept deliberately simple so they
// render the same across mail clients.

const confirmationHTML = `<html><body style="font-family:sans-serif;color:#1a1a1a">
<h2>Booking Confirmed</h2>
<p>Hi %s,</p>
<p>Your booking is confirmed. We look forward to seeing you.</p>
<table cellpadding="6">
<tr><td><strong>Service</strong></td><td>%s</td></tr>
<tr><td><strong>Date</strong></td><td>%s</td></tr>
<tr><td><strong>Time</strong></td><td>%s</td></tr>
<tr><td><strong>Amount paid</strong></td><td>$%.2f</td></tr>
<tr><td><strong>Booking reference</strong></td><td>%s</td></tr>
</table>
<p>If you need to make changes, reply to this email.</p>
</body></html>`

const cancellationHTML = `<html><body style="font-family:sans-serif;color:#1a1a1a">
<h2>Booking Cancelled</h2>
<p>Hi %s,</p>
<p>Your booking has been cancelled.</p>
<table cellpadding="6">
<tr><td><strong>Service</strong></td><td>%s</td></tr>
<tr><td><strong>Date</strong></td><td>%s</td></tr>
<tr><td><strong>Time</strong></td><td>%s</td></tr>
<tr><td><strong>Reason</strong></td><td>%s</td></tr>
<tr><td><strong>Refund amount</strong></td><td>$%.2f</td></tr>
<tr><td><strong>Booking reference</strong></td><td>%s</td></tr>
</table>
<p>Any refund will appear on your statement within 5-10 business days.</p>
</body></html>`

const paymentFailedHTML = `<html><body style="font-family:sans-serif;color:#1a1a1a">
<h2>Payment Failed</h2>
<p>Hi %s,</p>
<p>We could not process the payment for your booking, so it has not been confirmed.</p>
<table cellpadding="6">
<tr><td><strong>Service</strong></td><td>%s</td></tr>
<tr><td><strong>Date</strong></td><td>%s</td></tr>
<tr><td><strong>Time</strong></td><td>%s</td></tr>
<tr><td><strong>Amount</strong></td><td>$%.2f</td></tr>
<tr><td><strong>Reference</strong></td><td>%s</td></tr>
</table>
<p>Please try booking again with a different payment method.</p>
</body></html>`

const refundHTML = `<html><body style="font-family:sans-serif;color:#1a1a1a">
<h2>Refund Processed</h2>
<p>Hi %s,</p>
<p>Your refund has been processed.</p>
<table cellpadding="6">
<tr><td><strong>Service</strong></td><td>%s</td></tr>
<tr><td><strong>Date</strong></td><td>%s</td></tr>
<tr><td><strong>Time</strong></td><td>%s</td></tr>
<tr><td><strong>Refund amount</strong></td><td>$%.2f</td></tr>
<tr><td><strong>Booking reference</strong></td><td>%s</td></tr>
</table>
<p>The refund will appear on your statement within 5-10 business days.</p>
</body></html>`
