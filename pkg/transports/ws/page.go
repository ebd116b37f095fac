package ws

// indexHTML is the built-in chat page. It speaks the same envelope protocol
// as any other client: send {type:"user",text} or {type:"clear"}, receive
// reply/image/audio/error/cleared.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>FlightAI Assistant</title>
<style>
  body { font-family: sans-serif; margin: 0; display: flex; height: 100vh; }
  #chat { flex: 1; display: flex; flex-direction: column; padding: 16px; }
  #log { flex: 1; overflow-y: auto; border: 1px solid #ccc; padding: 8px; }
  #log .user { text-align: right; color: #1a4d8f; margin: 4px 0; }
  #log .assistant { text-align: left; color: #222; margin: 4px 0; }
  #log .error { color: #a33; font-style: italic; margin: 4px 0; }
  #controls { display: flex; gap: 8px; margin-top: 8px; }
  #input { flex: 1; padding: 8px; }
  #panel { width: 40%; padding: 16px; border-left: 1px solid #ccc; }
  #panel img { max-width: 100%; }
</style>
</head>
<body>
<div id="chat">
  <div id="log"></div>
  <div id="controls">
    <input id="input" placeholder="Ask about flights..." autocomplete="off">
    <button id="send">Send</button>
    <button id="clear">Clear</button>
  </div>
</div>
<div id="panel"></div>
<script>
  const log = document.getElementById("log");
  const panel = document.getElementById("panel");
  const input = document.getElementById("input");
  const proto = location.protocol === "https:" ? "wss://" : "ws://";
  const sock = new WebSocket(proto + location.host + "/ws");

  function append(cls, text) {
    const div = document.createElement("div");
    div.className = cls;
    div.textContent = text;
    log.appendChild(div);
    log.scrollTop = log.scrollHeight;
  }

  sock.onmessage = (ev) => {
    const msg = JSON.parse(ev.data);
    if (msg.type === "reply") {
      append("assistant", msg.text);
    } else if (msg.type === "image") {
      panel.innerHTML = "";
      const img = document.createElement("img");
      img.src = "data:" + msg.mime + ";base64," + msg.data;
      panel.appendChild(img);
    } else if (msg.type === "audio") {
      const audio = new Audio("data:" + msg.mime + ";base64," + msg.data);
      audio.play().catch(() => {});
    } else if (msg.type === "error") {
      append("error", msg.message);
    } else if (msg.type === "cleared") {
      log.innerHTML = "";
      panel.innerHTML = "";
    }
  };

  function send() {
    const text = input.value.trim();
    if (!text) return;
    append("user", text);
    sock.send(JSON.stringify({type: "user", text: text}));
    input.value = "";
  }

  document.getElementById("send").onclick = send;
  input.addEventListener("keydown", (ev) => { if (ev.key === "Enter") send(); });
  document.getElementById("clear").onclick = () => {
    sock.send(JSON.stringify({type: "clear"}));
  };
</script>
</body>
</html>
`
