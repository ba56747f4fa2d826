// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package defaults

import "classportal/internal/parts"

// Endpoints of the external authentication service the default auth pages
// post to.
const (
	authRequestEndpoint  = "/auth/otp/request"
	authVerifyEndpoint   = "/auth/otp/verify"
	authRegisterEndpoint = "/auth/register"
)

const authStyle = `.auth { max-width: 380px; margin: 10vh auto; padding: 1.5rem; border-radius: .75rem; background: #fff; box-shadow: 0 4px 24px rgba(0, 0, 0, .08); font-family: system-ui, sans-serif; }
.auth-step { display: grid; gap: .6rem; }
.auth-step input { padding: .6rem; border: 1px solid #ccd; border-radius: .4rem; }
.auth-step button { padding: .6rem; border: 0; border-radius: .4rem; background: #2f5bd3; color: #fff; cursor: pointer; }
.auth-error { color: #b00020; }`

// authScriptCommon posts JSON and reports failures into .auth-error.
const authScriptCommon = `function authPost(url, body) {
  return fetch(url, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(body)
  }).then(function (res) {
    if (!res.ok) { throw new Error('request failed'); }
    return res.json();
  });
}
function authFail(msg) {
  var box = document.querySelector('.auth-error');
  box.textContent = msg;
  box.hidden = false;
}
`

func loginPage() parts.Parts {
	return parts.Parts{
		Markup: `<main class="auth">
<h1>Sign in</h1>
<form id="auth-phone" class="auth-step" data-endpoint="` + authRequestEndpoint + `">
<label for="auth-phone-input">Phone number</label>
<input id="auth-phone-input" name="phone" type="tel" autocomplete="tel" required>
<button type="submit">Send code</button>
</form>
<form id="auth-code" class="auth-step" data-endpoint="` + authVerifyEndpoint + `" hidden>
<label for="auth-code-input">Code</label>
<input id="auth-code-input" name="code" inputmode="numeric" autocomplete="one-time-code" required>
<button type="submit">Sign in</button>
</form>
<p class="auth-error" role="alert" hidden></p>
</main>`,
		Style: authStyle,
		Script: authScriptCommon + `(function () {
  var phoneForm = document.getElementById('auth-phone');
  var codeForm = document.getElementById('auth-code');
  var phone = '';
  phoneForm.addEventListener('submit', function (e) {
    e.preventDefault();
    phone = phoneForm.elements.phone.value;
    authPost(phoneForm.dataset.endpoint, {phone: phone}).then(function () {
      phoneForm.hidden = true;
      codeForm.hidden = false;
    }).catch(function () { authFail('Could not send the code.'); });
  });
  codeForm.addEventListener('submit', function (e) {
    e.preventDefault();
    authPost(codeForm.dataset.endpoint, {phone: phone, code: codeForm.elements.code.value}).then(function (res) {
      window.location.assign(res.redirect || '/');
    }).catch(function () { authFail('The code is not valid.'); });
  });
})();`,
	}
}

func tokenLoginPage() parts.Parts {
	return parts.Parts{
		Markup: `<main class="auth" data-token="{{with .page}}{{.token}}{{end}}">
<h1>{{with .classroom}}Join {{.name}}{{else}}Join your class{{end}}</h1>
<form id="auth-phone" class="auth-step" data-endpoint="` + authRequestEndpoint + `">
<label for="auth-phone-input">Phone number</label>
<input id="auth-phone-input" name="phone" type="tel" autocomplete="tel" required>
<button type="submit">Send code</button>
</form>
<form id="auth-code" class="auth-step" data-endpoint="` + authVerifyEndpoint + `" hidden>
<label for="auth-code-input">Code</label>
<input id="auth-code-input" name="code" inputmode="numeric" autocomplete="one-time-code" required>
<button type="submit">Continue</button>
</form>
<form id="auth-register" class="auth-step" data-endpoint="` + authRegisterEndpoint + `" hidden>
<label for="auth-name-input">Your name</label>
<input id="auth-name-input" name="name" autocomplete="name" required>
<label for="auth-join-input">Join code (optional)</label>
<input id="auth-join-input" name="join_code">
<button type="submit">Create account</button>
</form>
<p class="auth-error" role="alert" hidden></p>
</main>`,
		Style: authStyle,
		Script: authScriptCommon + `(function () {
  var root = document.querySelector('.auth');
  var token = root.dataset.token;
  var phoneForm = document.getElementById('auth-phone');
  var codeForm = document.getElementById('auth-code');
  var registerForm = document.getElementById('auth-register');
  var phone = '';
  phoneForm.addEventListener('submit', function (e) {
    e.preventDefault();
    phone = phoneForm.elements.phone.value;
    authPost(phoneForm.dataset.endpoint, {phone: phone, token: token}).then(function () {
      phoneForm.hidden = true;
      codeForm.hidden = false;
    }).catch(function () { authFail('Could not send the code.'); });
  });
  codeForm.addEventListener('submit', function (e) {
    e.preventDefault();
    authPost(codeForm.dataset.endpoint, {phone: phone, code: codeForm.elements.code.value, token: token}).then(function (res) {
      if (res.registered) {
        window.location.assign(res.redirect || '/');
        return;
      }
      codeForm.hidden = true;
      registerForm.hidden = false;
    }).catch(function () { authFail('The code is not valid.'); });
  });
  registerForm.addEventListener('submit', function (e) {
    e.preventDefault();
    authPost(registerForm.dataset.endpoint, {
      phone: phone,
      token: token,
      name: registerForm.elements.name.value,
      join_code: registerForm.elements.join_code.value
    }).then(function (res) {
      window.location.assign(res.redirect || '/');
    }).catch(function () { authFail('Registration failed.'); });
  });
})();`,
	}
}
